package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OutputKind identifies the shape of the value a node published.
type OutputKind string

const (
	// OutputNone means the node has not produced anything in the current run.
	OutputNone OutputKind = ""

	// OutputText carries a string.
	OutputText OutputKind = "text"

	// OutputJSON carries a decoded JSON value (map, slice, number, string, bool or nil).
	OutputJSON OutputKind = "json"

	// OutputChunks carries a []string, as produced by text splitting.
	OutputChunks OutputKind = "chunks"
)

// ChunkSeparator joins multiple text fragments into one aggregated string.
const ChunkSeparator = "\n\n"

// Output is the typed envelope a node publishes for its downstream nodes.
// Reading it is total over kinds: every kind has a text rendering.
type Output struct {
	Kind  OutputKind `json:"kind"`
	Value any        `json:"value,omitempty"`
}

// TextOutput wraps text in an Output.
func TextOutput(text string) Output {
	return Output{Kind: OutputText, Value: text}
}

// JSONOutput wraps a decoded JSON value in an Output.
func JSONOutput(value any) Output {
	return Output{Kind: OutputJSON, Value: value}
}

// ChunksOutput wraps a list of text chunks in an Output.
func ChunksOutput(chunks []string) Output {
	return Output{Kind: OutputChunks, Value: chunks}
}

// IsZero reports whether nothing was produced.
func (output Output) IsZero() bool {
	return output.Kind == OutputNone
}

// Text renders the output as text. JSON values are rendered compactly, chunks
// are joined with ChunkSeparator.
func (output Output) Text() string {
	switch output.Kind {
	case OutputNone:
		return ""
	case OutputText:
		text, _ := output.Value.(string)
		return text
	case OutputChunks:
		chunks, _ := output.Value.([]string)
		return strings.Join(chunks, ChunkSeparator)
	case OutputJSON:
		if text, isString := output.Value.(string); isString {
			return text
		}
		encoded, err := json.Marshal(output.Value)
		if err != nil {
			return fmt.Sprintf("%v", output.Value)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", output.Value)
	}
}

// Raw returns the value as structured data. Text outputs are returned as
// strings, chunks as []any so that jq and expr see plain JSON values.
func (output Output) Raw() any {
	switch output.Kind {
	case OutputChunks:
		chunks, _ := output.Value.([]string)
		values := make([]any, len(chunks))
		for index, chunk := range chunks {
			values[index] = chunk
		}
		return values
	default:
		return output.Value
	}
}
