package node

import (
	"context"
	"strings"

	"github.com/leofalp/nodeflow/core/graph"
)

// gatherText joins the text of every upstream output in edge order. Sources
// without output are skipped. The result is also stored as the node's
// upstream input; a node without upstream output has that input removed so a
// previous run cannot leak into this one.
func gatherText(call *Call) error {
	var parts []string
	for _, edge := range call.Graph.EdgesInto(call.Node.ID) {
		text := call.Graph.Output(edge.Source).Text()
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}

	call.HasUpstream = len(parts) > 0
	call.Upstream = strings.Join(parts, graph.ChunkSeparator)
	if !call.HasUpstream {
		call.Graph.DeleteInput(call.Node.ID, UpstreamInput)
		return nil
	}
	return call.Graph.SetInput(call.Node.ID, UpstreamInput, call.Upstream)
}

// gatherStructured takes the first upstream output as-is.
func gatherStructured(call *Call) {
	call.Structured = graph.Output{}
	for _, edge := range call.Graph.EdgesInto(call.Node.ID) {
		if output := call.Graph.Output(edge.Source); !output.IsZero() {
			call.Structured = output
			return
		}
	}
}

// textGather implements Gather for kinds that consume aggregated text.
type textGather struct{}

func (textGather) Gather(_ context.Context, call *Call) error {
	return gatherText(call)
}

// structuredGather implements Gather for kinds that consume the first
// upstream value. The aggregated text is gathered too.
type structuredGather struct{}

func (structuredGather) Gather(_ context.Context, call *Call) error {
	gatherStructured(call)
	return gatherText(call)
}

// outputPublisher implements Publish by replacing the node's output and
// clearing its error.
type outputPublisher struct{}

func (outputPublisher) Publish(_ context.Context, call *Call, output graph.Output) error {
	if err := call.Graph.SetOutput(call.Node.ID, output); err != nil {
		return err
	}
	return call.Graph.SetError(call.Node.ID, nil)
}
