package redisbus_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/nodeflow/core/bus"
	"github.com/leofalp/nodeflow/providers/bus/redisbus"
)

func newTestBus(t *testing.T) (*redisbus.Bus, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := backend.NewClient(&backend.Options{Addr: server.Addr()})
	redisBus := redisbus.NewFromClient(client, redisbus.WithPrefix("test:"))
	t.Cleanup(func() { _ = redisBus.Close() })
	return redisBus, server
}

// TestRedisBus_FIFO verifies publish order is preserved and an empty topic
// reports not-ok without an error.
func TestRedisBus_FIFO(t *testing.T) {
	ctx := context.Background()
	redisBus, server := newTestBus(t)
	require.NoError(t, redisBus.Ping(ctx))

	require.NoError(t, redisBus.Publish(ctx, "t", "a"))
	require.NoError(t, redisBus.Publish(ctx, "t", "b"))

	size, err := redisBus.Len(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	listed, err := server.List("test:t")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, listed)

	for _, expected := range []string{"a", "b"} {
		payload, ok, err := redisBus.Consume(ctx, "t")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, expected, payload)
	}

	payload, ok, err := redisBus.Consume(ctx, "t")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, payload)
}

func TestRedisBus_EmptyTopic(t *testing.T) {
	redisBus, _ := newTestBus(t)
	assert.ErrorIs(t, redisBus.Publish(context.Background(), "", "x"), bus.ErrEmptyTopic)
}

// TestRedisBus_SharedAcrossClients verifies that two bus instances on the same
// server compete for one queue.
func TestRedisBus_SharedAcrossClients(t *testing.T) {
	ctx := context.Background()
	first, server := newTestBus(t)
	second := redisbus.NewFromClient(backend.NewClient(&backend.Options{Addr: server.Addr()}), redisbus.WithPrefix("test:"))
	defer second.Close()

	require.NoError(t, first.Publish(ctx, "shared", "only-once"))

	payload, ok, err := second.Consume(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "only-once", payload)

	_, ok, err = first.Consume(ctx, "shared")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBus_ServerDown_ReturnsError(t *testing.T) {
	redisBus, server := newTestBus(t)
	server.Close()

	_, _, err := redisBus.Consume(context.Background(), "t")
	assert.Error(t, err)
}
