package bus

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Bus. Queue mutation is serialized by a mutex so
// FIFO order holds even when nodes run in parallel.
type Memory struct {
	mu     sync.Mutex
	queues map[string][]string
}

// NewMemory returns an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{queues: make(map[string][]string)}
}

var _ Bus = (*Memory)(nil)

func (memory *Memory) Publish(_ context.Context, topic, payload string) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	memory.mu.Lock()
	defer memory.mu.Unlock()

	memory.queues[topic] = append(memory.queues[topic], payload)
	return nil
}

func (memory *Memory) Consume(_ context.Context, topic string) (string, bool, error) {
	if topic == "" {
		return "", false, ErrEmptyTopic
	}
	memory.mu.Lock()
	defer memory.mu.Unlock()

	queue := memory.queues[topic]
	if len(queue) == 0 {
		return "", false, nil
	}

	payload := queue[0]
	queue[0] = ""
	if len(queue) == 1 {
		delete(memory.queues, topic)
	} else {
		memory.queues[topic] = queue[1:]
	}
	return payload, true, nil
}

func (memory *Memory) Len(_ context.Context, topic string) (int, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return len(memory.queues[topic]), nil
}

// Topics lists topics that currently hold at least one payload, sorted.
func (memory *Memory) Topics() []string {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	topics := make([]string, 0, len(memory.queues))
	for topic := range memory.queues {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
