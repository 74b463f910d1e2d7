package node

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/providers/llm/openai"
)

// ErrNothingToEmbed is returned by embeddings nodes with neither configured
// input nor upstream text.
var ErrNothingToEmbed = errors.New("embeddings: nothing to embed")

type embeddingsConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	// Input is a string or a list of strings.
	Input any `mapstructure:"input"`
}

// embeddingsExecutor calls an OpenAI-compatible embeddings endpoint. Chunked
// upstream output is embedded chunk by chunk; any other upstream is embedded
// as one text. The output is the list of vectors in input order.
type embeddingsExecutor struct {
	structuredGather
	outputPublisher

	engine *Engine
}

func (executor embeddingsExecutor) Invoke(ctx context.Context, call *Call) (graph.Output, error) {
	engine := executor.engine

	var config embeddingsConfig
	if err := decodeConfig(call.Settings(), &config); err != nil {
		return graph.Output{}, err
	}
	if config.Endpoint == "" {
		config.Endpoint = engine.defaults.EmbeddingsEndpoint
	}
	if config.APIKey == "" {
		config.APIKey = engine.defaults.APIKey
	}
	if config.Model == "" {
		config.Model = engine.defaults.EmbeddingsModel
	}
	if config.Endpoint == "" {
		return graph.Output{}, ErrNoEndpoint
	}

	texts := embeddingTexts(config.Input, call)
	if len(texts) == 0 {
		return graph.Output{}, ErrNothingToEmbed
	}

	client := openai.New(config.Endpoint, config.APIKey,
		openai.WithHTTPClient(engine.httpClient),
		openai.WithLogger(engine.logger),
	)
	response, err := client.Embed(ctx, goopenai.EmbeddingRequest{
		Input:          texts,
		Model:          goopenai.EmbeddingModel(config.Model),
		EncodingFormat: goopenai.EmbeddingEncodingFormatFloat,
		Dimensions:     config.Dimensions,
	})
	if err != nil {
		return graph.Output{}, err
	}

	vectors := openai.Vectors(response)
	if len(vectors) != len(texts) {
		return graph.Output{}, fmt.Errorf("embeddings: %d vectors for %d inputs", len(vectors), len(texts))
	}
	values := make([]any, len(vectors))
	for index, vector := range vectors {
		components := make([]any, len(vector))
		for position, component := range vector {
			components[position] = float64(component)
		}
		values[index] = components
	}
	return graph.JSONOutput(values), nil
}

// embeddingTexts picks the configured input first, then upstream chunks, then
// the gathered upstream text. Blank entries are dropped.
func embeddingTexts(configured any, call *Call) []string {
	var candidates []string
	switch input := configured.(type) {
	case string:
		candidates = []string{input}
	case []string:
		candidates = input
	case []any:
		for _, item := range input {
			candidates = append(candidates, fmt.Sprint(item))
		}
	}

	if len(candidates) == 0 {
		if chunks, isChunks := call.Structured.Value.([]string); isChunks && call.Structured.Kind == graph.OutputChunks {
			candidates = chunks
		} else if call.HasUpstream {
			candidates = []string{call.Upstream}
		}
	}

	texts := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) != "" {
			texts = append(texts, candidate)
		}
	}
	return texts
}
