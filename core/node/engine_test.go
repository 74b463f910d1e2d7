package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/nodeflow/core/graph"
	observabilityslog "github.com/leofalp/nodeflow/providers/observability/slog"
)

func newTestEngine(opts ...Option) *Engine {
	return New(append([]Option{WithLogger(observabilityslog.NewNop())}, opts...)...)
}

// TestGather_JoinsUpstreamInEdgeOrder verifies that sources are concatenated
// in edge definition order and sources without output are skipped.
func TestGather_JoinsUpstreamInEdgeOrder(t *testing.T) {
	g := buildGraph(t, []graph.Node{
		{ID: "b", Kind: graph.KindText, Config: map[string]any{"text": "second"}},
		{ID: "a", Kind: graph.KindText, Config: map[string]any{"text": "first"}},
		{ID: "silent", Kind: graph.KindNoop},
		{ID: "sink", Kind: graph.KindResponse},
	}, edge("a", "sink"), edge("silent", "sink"), edge("b", "sink"))
	engine := newTestEngine()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "silent"} {
		_, err := engine.Execute(ctx, g, id)
		require.NoError(t, err)
	}
	status, err := engine.Execute(ctx, g, "sink")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, "first\n\nsecond", g.Output("sink").Text())

	upstream, found := g.Input("sink", UpstreamInput)
	require.True(t, found)
	assert.Equal(t, "first\n\nsecond", upstream)
}

// TestGather_NoIncomingEdges verifies a source node reads nothing.
func TestGather_NoIncomingEdges(t *testing.T) {
	g := buildGraph(t, []graph.Node{
		{ID: "other", Kind: graph.KindText, Config: map[string]any{"text": "unrelated"}},
		{ID: "alone", Kind: graph.KindResponse},
	})
	engine := newTestEngine()
	_, err := engine.Execute(context.Background(), g, "other")
	require.NoError(t, err)

	status, err := engine.Execute(context.Background(), g, "alone")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.True(t, g.Output("alone").IsZero())
	_, found := g.Input("alone", UpstreamInput)
	assert.False(t, found)
}

func TestExecute_Noop(t *testing.T) {
	g := buildGraph(t, []graph.Node{{ID: "n", Kind: graph.KindNoop}})
	status, err := newTestEngine().Execute(context.Background(), g, "n")
	require.NoError(t, err)
	assert.Equal(t, StatusNoop, status)
}

func TestExecute_UnknownNode(t *testing.T) {
	g := buildGraph(t, []graph.Node{{ID: "n", Kind: graph.KindNoop}})

	status, err := newTestEngine().Execute(context.Background(), g, "missing")
	assert.Equal(t, StatusFailed, status)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestExecutorFor_ClosedKindSet(t *testing.T) {
	engine := newTestEngine()
	for _, kind := range graph.Kinds() {
		_, err := engine.executorFor(kind)
		assert.NoError(t, err, kind)
	}

	_, err := engine.executorFor(graph.Kind("mystery"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

// TestExecute_Idempotent verifies that re-executing with unchanged inputs
// yields the same output and that an upstream removed between runs does not
// leak into the next one.
func TestExecute_Idempotent(t *testing.T) {
	g := buildGraph(t, []graph.Node{
		{ID: "src", Kind: graph.KindText, Config: map[string]any{"text": "alpha beta gamma"}},
		{ID: "split", Kind: graph.KindSplitText, Config: map[string]any{"chunk_size": 6, "overlap": 1}},
	}, edge("src", "split"))
	engine := newTestEngine()
	ctx := context.Background()

	_, err := engine.Execute(ctx, g, "src")
	require.NoError(t, err)
	_, err = engine.Execute(ctx, g, "split")
	require.NoError(t, err)
	first := g.Output("split")

	_, err = engine.Execute(ctx, g, "split")
	require.NoError(t, err)
	assert.Equal(t, first, g.Output("split"))

	require.NoError(t, g.SetOutput("src", graph.Output{}))
	_, err = engine.Execute(ctx, g, "split")
	require.NoError(t, err)
	assert.Equal(t, graph.ChunksOutput([]string{}), g.Output("split"))
}

func TestExecute_FailureClearsOutput(t *testing.T) {
	g := buildGraph(t, []graph.Node{
		{ID: "src", Kind: graph.KindText, Config: map[string]any{"text": `{"a": 1}`}},
		{ID: "pick", Kind: graph.KindTransform, Config: map[string]any{"expression": ".a"}},
	}, edge("src", "pick"))
	engine := newTestEngine()
	ctx := context.Background()

	_, err := engine.Execute(ctx, g, "src")
	require.NoError(t, err)
	status, err := engine.Execute(ctx, g, "pick")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, "1", g.Output("pick").Text())

	require.NoError(t, g.SetOutput("src", graph.TextOutput("plain words")))
	status, err = engine.Execute(ctx, g, "pick")
	assert.Equal(t, StatusFailed, status)
	require.Error(t, err)
	assert.True(t, g.Output("pick").IsZero())
	assert.Equal(t, err, g.Err("pick"))
}

func TestExecute_CancelledContext(t *testing.T) {
	g := buildGraph(t, []graph.Node{{ID: "t", Kind: graph.KindText, Config: map[string]any{"text": "x"}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := newTestEngine().Execute(ctx, g, "t")
	assert.Equal(t, StatusFailed, status)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContextHelpers(t *testing.T) {
	var first, second []EventType
	ctx := ContextWithRunID(context.Background(), "run-1")
	ctx = ContextWithListener(ctx, func(event Event) { first = append(first, event.Type) })
	ctx = ContextWithListener(ctx, func(event Event) {
		second = append(second, event.Type)
		assert.Equal(t, "run-1", event.RunID)
		assert.False(t, event.Time.IsZero())
	})

	Emit(ctx, Event{Type: EventNodeStart})
	assert.Equal(t, []EventType{EventNodeStart}, first)
	assert.Equal(t, []EventType{EventNodeStart}, second)
	assert.Equal(t, "run-1", RunIDFromContext(ctx))

	Emit(context.Background(), Event{Type: EventNodeStart})
}
