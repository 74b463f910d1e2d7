package node

import (
	"context"

	"github.com/leofalp/nodeflow/core/graph"
)

type textConfig struct {
	Text string `mapstructure:"text"`
}

// textExecutor outputs its configured text, or the gathered upstream text
// when none is configured.
type textExecutor struct {
	textGather
	outputPublisher
}

func (textExecutor) Invoke(_ context.Context, call *Call) (graph.Output, error) {
	var config textConfig
	if err := decodeConfig(call.Settings(), &config); err != nil {
		return graph.Output{}, err
	}
	if config.Text != "" {
		return graph.TextOutput(config.Text), nil
	}
	return graph.TextOutput(call.Upstream), nil
}
