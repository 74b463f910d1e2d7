package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/providers/tool/webfetch"
)

// ErrNoURLs is returned by web_content nodes with nothing to fetch.
var ErrNoURLs = errors.New("web_content: no URLs")

type webContentConfig struct {
	URLs    []string      `mapstructure:"urls"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// webContentExecutor fetches the configured URLs, or the URLs listed in the
// upstream text, as Markdown. A URL that fails is reported inline; the node
// fails only when every URL failed.
type webContentExecutor struct {
	textGather
	outputPublisher

	engine *Engine
}

func (executor webContentExecutor) Invoke(ctx context.Context, call *Call) (graph.Output, error) {
	var config webContentConfig
	if err := decodeConfig(call.Settings(), &config); err != nil {
		return graph.Output{}, err
	}

	var urls []string
	for _, entry := range config.URLs {
		urls = append(urls, webfetch.SplitURLs(entry)...)
	}
	if len(urls) == 0 {
		urls = webfetch.SplitURLs(call.Upstream)
	}
	if len(urls) == 0 {
		return graph.Output{}, ErrNoURLs
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	results := executor.engine.fetcher.FetchAll(ctx, urls)
	sections := make([]string, 0, len(results))
	var failures []error
	for _, result := range results {
		if result.Err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", result.Requested, result.Err))
			sections = append(sections, fmt.Sprintf("## %s\n\nError: %v", result.Requested, result.Err))
			continue
		}
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", result.Page.URL, strings.TrimSpace(result.Page.Markdown)))
	}
	if len(failures) == len(results) {
		return graph.Output{}, errors.Join(failures...)
	}
	return graph.TextOutput(strings.Join(sections, graph.ChunkSeparator)), nil
}
