package webfetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/nodeflow/internal/utils"
)

// TestFetch_ConvertsHTML tests successful fetching and Markdown conversion
func TestFetch_ConvertsHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Welcome</h1><p>This is a <strong>test</strong>.</p></body></html>`)
	}))
	defer server.Close()

	page, err := New().Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if page.URL != server.URL {
		t.Errorf("Expected URL %s, got %s", server.URL, page.URL)
	}
	if !strings.Contains(page.Markdown, "# Welcome") {
		t.Errorf("Markdown should contain the heading, got %q", page.Markdown)
	}
	if !strings.Contains(page.Markdown, "**test**") {
		t.Errorf("Markdown should contain bold text, got %q", page.Markdown)
	}
}

func TestFetch_PlainTextKeptVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "<b>not html</b>")
	}))
	defer server.Close()

	page, err := New().Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if page.Markdown != "<b>not html</b>" {
		t.Errorf("unexpected content %q", page.Markdown)
	}
}

func TestFetch_EmptyURL(t *testing.T) {
	if _, err := New().Fetch(context.Background(), "   "); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
}

func TestFetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := New().Fetch(context.Background(), server.URL)
	var httpError *utils.HTTPError
	if !errors.As(err, &httpError) || httpError.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 HTTPError, got %v", err)
	}
}

// TestFetch_Redirect verifies the final URL after redirects is reported.
func TestFetch_Redirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>moved</p></body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	page, err := New().Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if page.URL != server.URL+"/new" {
		t.Errorf("expected final URL %s/new, got %s", server.URL, page.URL)
	}
}

// TestFetch_SlowBodyTimesOut tests that a server trickling its body is cut
// off by the per-page timeout.
func TestFetch_SlowBodyTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		flusher := w.(http.Flusher)
		for _, char := range []byte("<html><body>slow</body></html>") {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			_, _ = w.Write([]byte{char})
			flusher.Flush()
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := New(WithTimeout(300*time.Millisecond)).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took too long: %v", elapsed)
	}
}

func TestFetchAll_KeepsPerURLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>ok</p></body></html>")
	}))
	defer server.Close()

	results := New().FetchAll(context.Background(), []string{server.URL + "/a", server.URL + "/missing"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil || !strings.Contains(results[0].Page.Markdown, "ok") {
		t.Errorf("first result unexpected: %+v", results[0])
	}
	if results[1].Err == nil || results[1].Requested != server.URL+"/missing" {
		t.Errorf("second result should carry an error: %+v", results[1])
	}
}

func TestSplitURLs(t *testing.T) {
	got := SplitURLs("a.com, b.com\nc.com  ,")
	want := []string{"a.com", "b.com", "c.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitURLs = %v, want %v", got, want)
	}
}
