package node

import (
	"context"
	"errors"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/providers/tool/websearch"
)

// ErrNoEndpoint is returned when a network node has no endpoint configured.
var ErrNoEndpoint = errors.New("node: no endpoint configured")

type webSearchConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Query      string `mapstructure:"query"`
	ResultSize int    `mapstructure:"result_size"`
}

// webSearchExecutor queries a search endpoint with the configured query or
// the upstream text. Results are published as chunks.
type webSearchExecutor struct {
	textGather
	outputPublisher

	engine *Engine
}

func (executor webSearchExecutor) Invoke(ctx context.Context, call *Call) (graph.Output, error) {
	var config webSearchConfig
	if err := decodeConfig(call.Settings(), &config); err != nil {
		return graph.Output{}, err
	}
	if config.Endpoint == "" {
		config.Endpoint = executor.engine.defaults.SearchEndpoint
	}
	if config.Endpoint == "" {
		return graph.Output{}, ErrNoEndpoint
	}

	query := config.Query
	if query == "" {
		query = call.Upstream
	}

	client := websearch.New(config.Endpoint, executor.engine.httpClient)
	results, err := client.Search(ctx, websearch.Input{Query: query, ResultSize: config.ResultSize})
	if err != nil {
		return graph.Output{}, err
	}
	return graph.ChunksOutput(results), nil
}
