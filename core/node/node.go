package node

import (
	"context"
	"errors"
	"maps"

	"github.com/leofalp/nodeflow/core/graph"
)

// Status is the outcome of one node execution.
type Status string

const (
	// StatusCompleted means the node published an output.
	StatusCompleted Status = "completed"

	// StatusHalted means the node produced nothing and its downstream must
	// not run. It is not an error.
	StatusHalted Status = "halted"

	// StatusNoop means the node has no operation or had nothing to do.
	StatusNoop Status = "noop"

	// StatusFailed means the node returned an error, attached with graph.SetError.
	StatusFailed Status = "failed"

	// StatusSkipped is assigned by the runner to nodes whose upstream did not
	// complete. Execute never returns it.
	StatusSkipped Status = "skipped"
)

var (
	// ErrHalt is returned by Invoke to stop propagation without failing.
	ErrHalt = errors.New("node: nothing produced, halt propagation")

	// ErrNoop is returned by Invoke when the operation had nothing to do. It
	// maps to StatusNoop and is not recorded as an error.
	ErrNoop = errors.New("node: nothing to do")

	// ErrUnknownKind is returned for a kind outside the closed set.
	ErrUnknownKind = errors.New("node: unknown kind")
)

// UpstreamInput is the Inputs key holding the aggregated upstream text.
const UpstreamInput = "upstream"

// Call is the state of one execution, filled in by Gather and read by Invoke.
type Call struct {
	Graph *graph.Graph
	Node  graph.Node

	// Upstream is the text of every upstream output, joined in edge order.
	Upstream string

	// HasUpstream is true when at least one upstream source had output.
	HasUpstream bool

	// Structured is the raw output of the first upstream source that had one.
	Structured graph.Output
}

// Settings returns the node's config with its declared inputs laid over it.
// An input named like a config key wins; the gathered upstream text is not a
// setting and is left out.
func (call *Call) Settings() map[string]any {
	settings := maps.Clone(call.Node.Config)
	if settings == nil {
		settings = make(map[string]any, len(call.Node.Inputs))
	}
	for key, value := range call.Node.Inputs {
		if key == UpstreamInput {
			continue
		}
		settings[key] = value
	}
	return settings
}

// Executor is the contract every node kind implements.
type Executor interface {
	Gather(ctx context.Context, call *Call) error
	Invoke(ctx context.Context, call *Call) (graph.Output, error)
	Publish(ctx context.Context, call *Call, output graph.Output) error
}

// Receiver is implemented by kinds that accept pushed stream deltas from an
// upstream node. Receive is called after a source's output changed, with the
// text just appended, and returns the node's new output.
type Receiver interface {
	Receive(ctx context.Context, call *Call, delta string) (graph.Output, error)
}
