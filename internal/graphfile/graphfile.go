// Package graphfile reads graph documents.
//
// A document lists nodes and edges:
//
//	nodes:
//	  - id: question
//	    kind: text
//	    config: {text: "What changed in Go 1.25?"}
//	  - id: answer
//	    kind: agent
//	    config: {stream: true}
//	edges:
//	  - {source: question, target: answer}
//
// YAML and JSON are accepted. Documents are validated against an embedded
// JSON Schema before the graph is built.
package graphfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/nodeflow/core/graph"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrInvalidDocument wraps schema violations.
var ErrInvalidDocument = errors.New("graphfile: invalid document")

const schemaLocation = "https://nodeflow.dev/schemas/graph.json"

//go:embed schema.json
var schemaJSON []byte

var documentSchema = mustCompileSchema()

// Document is the serialized form of a graph.
type Document struct {
	Nodes []Node       `json:"nodes" yaml:"nodes"`
	Edges []graph.Edge `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// Node is one node entry of a Document.
type Node struct {
	ID     string         `json:"id" yaml:"id"`
	Kind   string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

func mustCompileSchema() *jsonschema.Schema {
	document, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("graphfile: decode schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err = compiler.AddResource(schemaLocation, document); err != nil {
		panic(fmt.Sprintf("graphfile: add schema: %v", err))
	}
	return compiler.MustCompile(schemaLocation)
}

// FormatFromPath picks the format from a file extension. Anything other than
// .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and builds the graph document at path.
func Load(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	g, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Decode validates data and builds the graph it describes.
func Decode(data []byte, format Format) (*graph.Graph, error) {
	document, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	return document.Build()
}

// Parse validates data against the document schema and decodes it.
func Parse(data []byte, format Format) (*Document, error) {
	normalized, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(normalized))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err = documentSchema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var document Document
	if err = json.Unmarshal(normalized, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &document, nil
}

// toJSON converts a YAML document to JSON so both formats go through one
// validation path.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return data, nil
	case FormatYAML:
		var value any
		if err := yaml.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return encoded, nil
	default:
		return nil, fmt.Errorf("graphfile: unknown format %q", format)
	}
}

// Build creates the graph. Duplicate ids and edges that reference unknown
// nodes are rejected.
func (document *Document) Build() (*graph.Graph, error) {
	g := graph.New()
	for _, entry := range document.Nodes {
		kind, err := graph.ParseKind(entry.Kind)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", entry.ID, err)
		}
		if err = g.AddNode(graph.Node{ID: entry.ID, Kind: kind, Config: entry.Config, Inputs: entry.Inputs}); err != nil {
			return nil, err
		}
	}
	for _, edge := range document.Edges {
		if err := g.AddEdge(edge.Source, edge.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// FromGraph returns the document describing g.
func FromGraph(g *graph.Graph) *Document {
	document := &Document{Edges: g.Edges()}
	for _, graphNode := range g.Nodes() {
		document.Nodes = append(document.Nodes, Node{
			ID:     graphNode.ID,
			Kind:   string(graphNode.Kind),
			Config: graphNode.Config,
			Inputs: graphNode.Inputs,
		})
	}
	return document
}
