package node

import (
	"context"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/core/parse"
)

type transformConfig struct {
	Expression string `mapstructure:"expression"`
}

// transformExecutor runs a jq expression over the first upstream output.
// Text upstream is decoded tolerantly as JSON and falls back to the plain
// string. The node config is available as $config.
type transformExecutor struct {
	structuredGather
	outputPublisher

	engine *Engine
}

func (executor transformExecutor) Invoke(ctx context.Context, call *Call) (graph.Output, error) {
	var config transformConfig
	settings := call.Settings()
	if err := decodeConfig(settings, &config); err != nil {
		return graph.Output{}, err
	}

	result, err := executor.engine.jq.Evaluate(ctx, config.Expression, structuredValue(call.Structured), settings)
	if err != nil {
		return graph.Output{}, err
	}
	if text, isString := result.(string); isString {
		return graph.TextOutput(text), nil
	}
	return graph.JSONOutput(result), nil
}

// structuredValue returns output as plain JSON data.
func structuredValue(output graph.Output) any {
	if output.Kind != graph.OutputText {
		return output.Raw()
	}
	text := output.Text()
	if value, err := parse.Value(text); err == nil {
		switch value.(type) {
		case map[string]any, []any:
			return value
		}
	}
	return text
}
