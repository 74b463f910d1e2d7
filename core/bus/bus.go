// Package bus provides the topic-addressed message queue that lets nodes
// which are not connected by an edge exchange data.
//
// Every topic owns an independent FIFO queue. Publish always appends;
// Consume pops the oldest payload. There is no broadcast: concurrent
// consumers of one topic compete, and each payload is delivered to exactly
// one Consume call.
//
// A Bus is an explicitly constructed service injected into the node engine.
// [Memory] keeps queues in process; the redisbus provider keeps them in Redis
// with the same semantics so several processes can share them.
package bus

import (
	"context"
	"errors"
)

// ErrEmptyTopic is returned when an operation is called without a topic.
var ErrEmptyTopic = errors.New("bus: topic must not be empty")

// Envelope is a payload queued on a topic.
type Envelope struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// Bus is a set of per-topic FIFO queues with competing consumers.
type Bus interface {
	// Publish appends payload to the topic's queue. It never blocks on
	// consumers and never drops.
	Publish(ctx context.Context, topic, payload string) error

	// Consume removes and returns the oldest payload of the topic. The
	// boolean is false when the queue is empty; that is not an error.
	Consume(ctx context.Context, topic string) (string, bool, error)

	// Len returns the number of payloads queued on the topic.
	Len(ctx context.Context, topic string) (int, error)
}
