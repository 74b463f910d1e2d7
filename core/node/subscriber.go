package node

import (
	"context"

	"github.com/leofalp/nodeflow/core/bus"
	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/providers/observability"
)

// subscriberExecutor consumes one payload from its topic. Consumers of a
// topic compete: each payload reaches exactly one of them.
//
// With an empty queue and no upstream text the node halts, so it waits
// quietly across runs. With upstream text, that text stands in for the
// missing payload; with both, they are joined upstream first.
type subscriberExecutor struct {
	textGather
	outputPublisher

	engine *Engine
}

func (executor subscriberExecutor) Invoke(ctx context.Context, call *Call) (graph.Output, error) {
	var config busConfig
	if err := decodeConfig(call.Settings(), &config); err != nil {
		return graph.Output{}, err
	}
	if config.Topic == "" {
		return graph.Output{}, bus.ErrEmptyTopic
	}

	payload, received, err := executor.engine.bus.Consume(ctx, config.Topic)
	if err != nil {
		return graph.Output{}, err
	}

	outcome := "empty"
	if received {
		outcome = "received"
	}
	executor.engine.counter(ctx, observability.MetricBusConsumed,
		observability.String(observability.AttrBusTopic, config.Topic),
		observability.String(observability.AttrStatus, outcome))

	switch {
	case received && call.HasUpstream:
		return graph.TextOutput(call.Upstream + graph.ChunkSeparator + payload), nil
	case received:
		return graph.TextOutput(payload), nil
	case call.HasUpstream:
		return graph.TextOutput(call.Upstream), nil
	default:
		return graph.Output{}, ErrHalt
	}
}
