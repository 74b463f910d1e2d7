package node

import (
	"context"

	"github.com/leofalp/nodeflow/core/graph"
)

type gateConfig struct {
	Condition string `mapstructure:"condition"`
}

// gateExecutor passes the upstream text through when its expr condition holds
// and halts otherwise. The condition sees input (upstream text), data (first
// upstream value as JSON), has_input and config.
type gateExecutor struct {
	structuredGather
	outputPublisher

	engine *Engine
}

func (executor gateExecutor) Invoke(_ context.Context, call *Call) (graph.Output, error) {
	var config gateConfig
	settings := call.Settings()
	if err := decodeConfig(settings, &config); err != nil {
		return graph.Output{}, err
	}

	passed, err := executor.engine.predicate.Evaluate(config.Condition, map[string]any{
		"input":     call.Upstream,
		"data":      structuredValue(call.Structured),
		"has_input": call.HasUpstream,
		"config":    settings,
	})
	if err != nil {
		return graph.Output{}, err
	}
	if !passed {
		return graph.Output{}, ErrHalt
	}
	return graph.TextOutput(call.Upstream), nil
}
