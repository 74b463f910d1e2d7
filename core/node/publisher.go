package node

import (
	"context"

	"github.com/leofalp/nodeflow/core/bus"
	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/providers/observability"
)

type busConfig struct {
	Topic   string `mapstructure:"topic"`
	Message string `mapstructure:"message"`
}

// publisherExecutor publishes to the bus. Upstream text matching the
// TOPIC:/MESSAGE: template overrides the configured topic and message;
// otherwise the configured message, or the upstream text, is published to
// the configured topic. An empty topic or payload is a logged no-op.
type publisherExecutor struct {
	textGather
	outputPublisher

	engine *Engine
}

func (executor publisherExecutor) Invoke(ctx context.Context, call *Call) (graph.Output, error) {
	var config busConfig
	if err := decodeConfig(call.Settings(), &config); err != nil {
		return graph.Output{}, err
	}

	topic, payload := config.Topic, config.Message
	if payload == "" {
		payload = call.Upstream
	}
	if parsedTopic, parsedMessage, matched := bus.ParseTemplate(call.Upstream); matched {
		topic, payload = parsedTopic, parsedMessage
	}

	if topic == "" || payload == "" {
		executor.engine.logger.Warn("publish skipped: empty topic or payload",
			"node", call.Node.ID, "topic", topic, "payload_size", len(payload))
		return graph.Output{}, ErrNoop
	}

	if err := executor.engine.bus.Publish(ctx, topic, payload); err != nil {
		return graph.Output{}, err
	}
	executor.engine.counter(ctx, observability.MetricBusPublished,
		observability.String(observability.AttrBusTopic, topic))
	executor.engine.logger.Debug("published", "node", call.Node.ID, "topic", topic, "payload_size", len(payload))
	return graph.TextOutput(payload), nil
}
