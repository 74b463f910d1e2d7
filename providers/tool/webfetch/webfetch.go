package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/nodeflow/internal/utils"
)

const (
	// DefaultTimeout is the default per-page timeout
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is the default User-Agent header value
	DefaultUserAgent = "nodeflow-webfetch/1.0"
	// MaxBodySize is the maximum response body size (10MB)
	MaxBodySize = 10 * 1024 * 1024
	// DialTimeout is the maximum time to wait for a TCP connection
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the maximum time to wait for TLS handshake
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is the maximum time to wait for response headers
	ResponseHeaderTimeout = 10 * time.Second

	maxRedirects = 10
)

// ErrEmptyURL is returned for blank URLs.
var ErrEmptyURL = errors.New("webfetch: URL cannot be empty")

// Page is one fetched document.
type Page struct {
	// URL is the final URL after redirects.
	URL string `json:"url"`
	// Markdown is the converted content. Non-HTML bodies are kept verbatim.
	Markdown string `json:"markdown"`
}

// Result pairs a requested URL with its page or error.
type Result struct {
	Requested string
	Page      Page
	Err       error
}

// Fetcher fetches pages with a shared HTTP client.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client built by NewHTTPClient.
func WithHTTPClient(client *http.Client) Option {
	return func(fetcher *Fetcher) {
		fetcher.client = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(fetcher *Fetcher) {
		fetcher.userAgent = userAgent
	}
}

// WithTimeout sets the per-page timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(fetcher *Fetcher) {
		if timeout > 0 {
			fetcher.timeout = timeout
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	fetcher := &Fetcher{
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	if fetcher.client == nil {
		fetcher.client = NewHTTPClient()
	}
	return fetcher
}

// NewHTTPClient returns a client with connection-level timeouts and a
// redirect cap, so slow or unresponsive servers cannot block a node forever.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (>%d)", maxRedirects)
			}
			return nil
		},
	}
}

// Fetch retrieves rawURL and converts it to Markdown. A non-200 status is
// returned as *utils.HTTPError.
func (fetcher *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return Page{}, ErrEmptyURL
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	ctx, cancel := context.WithTimeout(ctx, fetcher.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("User-Agent", fetcher.userAgent)

	response, err := fetcher.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, fmt.Errorf("request timeout or canceled: %w", err)
		}
		return Page{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer utils.CloseWithLog(response.Body)

	body, err := io.ReadAll(io.LimitReader(response.Body, MaxBodySize+1))
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return Page{}, &utils.HTTPError{StatusCode: response.StatusCode, Body: string(body)}
	}
	if len(body) > MaxBodySize {
		return Page{}, fmt.Errorf("response body exceeds maximum size of %d bytes", MaxBodySize)
	}

	page := Page{URL: response.Request.URL.String()}
	if !isHTML(response.Header.Get("Content-Type"), body) {
		page.Markdown = string(body)
		return page, nil
	}

	page.Markdown, err = htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return Page{}, fmt.Errorf("convert HTML to Markdown: %w", err)
	}
	return page, nil
}

// FetchAll fetches urls in order. Every URL gets a Result; failures do not
// stop the batch.
func (fetcher *Fetcher) FetchAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, 0, len(urls))
	for _, rawURL := range urls {
		page, err := fetcher.Fetch(ctx, rawURL)
		results = append(results, Result{Requested: rawURL, Page: page, Err: err})
	}
	return results
}

// SplitURLs splits a comma, whitespace or newline separated list.
func SplitURLs(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\r' || r == '\t'
	})
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		return strings.Contains(contentType, "html")
	}
	return strings.Contains(strings.ToLower(string(body[:min(len(body), 512)])), "<html")
}
