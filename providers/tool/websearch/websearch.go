// Package websearch queries a search endpoint that answers
// GET ?query=&result_size= with a JSON list of result strings.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/leofalp/nodeflow/internal/utils"
	"github.com/leofalp/nodeflow/providers/tool"
)

// DefaultResultSize is the number of results requested when none is given.
const DefaultResultSize = 3

// ToolName is the function name the retrieval tool is declared under.
const ToolName = "retrieval"

// ErrEmptyQuery is returned when Search is called without a query.
var ErrEmptyQuery = errors.New("websearch: query is required")

// Input holds the search parameters. It doubles as the retrieval tool's
// argument schema.
type Input struct {
	Query      string `json:"query" description:"The search query"`
	ResultSize int    `json:"result_size,omitempty" description:"Number of results to return"`
}

// Client searches one endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a client for endpoint. A nil httpClient uses http.DefaultClient.
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// Search returns at most input.ResultSize results (DefaultResultSize when unset).
func (client *Client) Search(ctx context.Context, input Input) ([]string, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	resultSize := input.ResultSize
	if resultSize <= 0 {
		resultSize = DefaultResultSize
	}

	requestURL, err := url.Parse(client.endpoint)
	if err != nil {
		return nil, fmt.Errorf("websearch: parse endpoint: %w", err)
	}
	params := requestURL.Query()
	params.Set("query", query)
	params.Set("result_size", strconv.Itoa(resultSize))
	requestURL.RawQuery = params.Encode()

	_, results, err := utils.DoGetJSON[[]string](ctx, client.httpClient, requestURL.String(), "")
	if err != nil {
		return nil, fmt.Errorf("websearch: %w", err)
	}
	if len(*results) > resultSize {
		return (*results)[:resultSize], nil
	}
	return *results, nil
}

// NewTool wraps client as the retrieval side action. Results are rendered
// as one block of text, separated by blank lines.
func NewTool(client *Client) (*tool.Tool[Input, []string], error) {
	return tool.New(ToolName, client.Search,
		tool.WithDescription[Input, []string]("Searches the web and returns the most relevant text snippets for a query. Use it when the answer needs current or external information."),
		tool.WithRender[Input, []string](func(results []string) string {
			return strings.Join(results, "\n\n")
		}),
	)
}
