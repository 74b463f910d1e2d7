package node

import (
	"context"

	"github.com/leofalp/nodeflow/core/graph"
)

// responseExecutor is a display node. Its output is the accumulated upstream
// text, updated live while an upstream node streams.
type responseExecutor struct {
	textGather
	outputPublisher
}

var _ Receiver = responseExecutor{}

func (responseExecutor) Invoke(_ context.Context, call *Call) (graph.Output, error) {
	if !call.HasUpstream {
		return graph.Output{}, nil
	}
	return graph.TextOutput(call.Upstream), nil
}

// Receive rebuilds the upstream text from every source's current output, the
// streaming source's partial text included, and re-invokes.
func (executor responseExecutor) Receive(ctx context.Context, call *Call, _ string) (graph.Output, error) {
	if err := gatherText(call); err != nil {
		return graph.Output{}, err
	}
	return executor.Invoke(ctx, call)
}
