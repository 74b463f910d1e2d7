package node

import (
	"context"
	"fmt"

	"github.com/leofalp/nodeflow/core/graph"
)

// DefaultChunkSize is the split_text chunk size, in characters.
const DefaultChunkSize = 1000

type splitTextConfig struct {
	Text      string `mapstructure:"text"`
	ChunkSize int    `mapstructure:"chunk_size"`
	Overlap   int    `mapstructure:"overlap"`
}

// splitTextExecutor cuts text into chunks of ChunkSize characters, each
// starting Overlap characters before the end of the previous one.
type splitTextExecutor struct {
	textGather
	outputPublisher
}

func (splitTextExecutor) Invoke(_ context.Context, call *Call) (graph.Output, error) {
	var config splitTextConfig
	if err := decodeConfig(call.Settings(), &config); err != nil {
		return graph.Output{}, err
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.Overlap < 0 || config.Overlap >= config.ChunkSize {
		return graph.Output{}, fmt.Errorf("split_text: overlap %d must be in [0, %d)", config.Overlap, config.ChunkSize)
	}

	text := config.Text
	if text == "" {
		text = call.Upstream
	}
	return graph.ChunksOutput(splitText(text, config.ChunkSize, config.Overlap)), nil
}

func splitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
