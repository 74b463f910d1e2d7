// Package redisbus implements bus.Bus on Redis lists so that several
// processes share the same topic queues.
//
// Publish is RPUSH and Consume is LPOP on prefix+topic, which keeps FIFO
// order per topic and competing-consumer delivery across processes.
package redisbus

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/leofalp/nodeflow/core/bus"
)

// DefaultPrefix namespaces topic keys.
const DefaultPrefix = "nodeflow:topic:"

// Bus is a Redis-backed bus.Bus.
type Bus struct {
	client *backend.Client
	prefix string
}

type Option func(*Bus)

// WithPrefix sets the key prefix for topic queues.
func WithPrefix(prefix string) Option {
	return func(redisBus *Bus) {
		redisBus.prefix = prefix
	}
}

// New connects to Redis at address.
func New(address, password string, db int, opts ...Option) *Bus {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Bus {
	redisBus := &Bus{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(redisBus)
	}
	return redisBus
}

var _ bus.Bus = (*Bus)(nil)

func (redisBus *Bus) key(topic string) string {
	return redisBus.prefix + topic
}

// Publish appends payload to the topic list.
func (redisBus *Bus) Publish(ctx context.Context, topic, payload string) error {
	if topic == "" {
		return bus.ErrEmptyTopic
	}
	if err := redisBus.client.RPush(ctx, redisBus.key(topic), payload).Err(); err != nil {
		return fmt.Errorf("redis publish to %q: %w", topic, err)
	}
	return nil
}

// Consume pops the oldest payload of the topic list.
func (redisBus *Bus) Consume(ctx context.Context, topic string) (string, bool, error) {
	if topic == "" {
		return "", false, bus.ErrEmptyTopic
	}
	payload, err := redisBus.client.LPop(ctx, redisBus.key(topic)).Result()
	if errors.Is(err, backend.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis consume from %q: %w", topic, err)
	}
	return payload, true, nil
}

// Len returns the length of the topic list.
func (redisBus *Bus) Len(ctx context.Context, topic string) (int, error) {
	length, err := redisBus.client.LLen(ctx, redisBus.key(topic)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis length of %q: %w", topic, err)
	}
	return int(length), nil
}

// Ping checks connectivity.
func (redisBus *Bus) Ping(ctx context.Context) error {
	return redisBus.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (redisBus *Bus) Close() error {
	return redisBus.client.Close()
}
