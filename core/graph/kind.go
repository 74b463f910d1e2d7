package graph

import "fmt"

// Kind tags a node with the operation it performs. The set is closed: the
// node engine selects an executor with a switch over these values.
type Kind string

const (
	// KindNoop has no operation; executing it returns immediately.
	KindNoop Kind = "noop"

	// KindText emits static configured text, or its gathered upstream text.
	KindText Kind = "text"

	// KindAgent calls an OpenAI-compatible chat completion endpoint, either
	// request/response or streaming, optionally preceded by a tool-call selection request.
	KindAgent Kind = "agent"

	// KindEmbeddings calls an OpenAI-compatible embeddings endpoint and emits
	// one vector per input text as JSON.
	KindEmbeddings Kind = "embeddings"

	// KindResponse is a display node. It accumulates upstream text and accepts
	// deltas pushed by streaming nodes.
	KindResponse Kind = "response"

	// KindWebSearch queries a search endpoint and emits the result list as text.
	KindWebSearch Kind = "web_search"

	// KindWebContent fetches web pages and emits them as markdown.
	KindWebContent Kind = "web_content"

	// KindSplitText splits its input text into fixed-size chunks.
	KindSplitText Kind = "split_text"

	// KindTransform applies a jq expression to structured upstream data.
	KindTransform Kind = "transform"

	// KindGate evaluates a boolean expression and halts propagation when false.
	KindGate Kind = "gate"

	// KindPublisher appends a payload to a message bus topic.
	KindPublisher Kind = "publisher"

	// KindSubscriber consumes one payload from a message bus topic.
	KindSubscriber Kind = "subscriber"
)

var knownKinds = []Kind{
	KindNoop,
	KindText,
	KindAgent,
	KindEmbeddings,
	KindResponse,
	KindWebSearch,
	KindWebContent,
	KindSplitText,
	KindTransform,
	KindGate,
	KindPublisher,
	KindSubscriber,
}

// Kinds returns every supported node kind.
func Kinds() []Kind {
	kinds := make([]Kind, len(knownKinds))
	copy(kinds, knownKinds)
	return kinds
}

// Valid reports whether kind is one of the supported node kinds.
func (kind Kind) Valid() bool {
	for _, known := range knownKinds {
		if kind == known {
			return true
		}
	}
	return false
}

// ParseKind converts a string into a Kind. An empty string maps to KindNoop.
func ParseKind(value string) (Kind, error) {
	if value == "" {
		return KindNoop, nil
	}
	kind := Kind(value)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown node kind %q", value)
	}
	return kind, nil
}
