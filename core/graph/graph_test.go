package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T, nodeIDs []string, edges [][2]string) *Graph {
	t.Helper()
	graph := New()
	for _, nodeID := range nodeIDs {
		require.NoError(t, graph.AddNode(Node{ID: nodeID, Kind: KindText}))
	}
	for _, graphEdge := range edges {
		require.NoError(t, graph.AddEdge(graphEdge[0], graphEdge[1]))
	}
	return graph
}

// TestAddNode_Defaults_FillsKindAndMaps verifies that an empty kind becomes
// noop and nil maps are usable.
func TestAddNode_Defaults_FillsKindAndMaps(t *testing.T) {
	graph := New()
	require.NoError(t, graph.AddNode(Node{ID: "a"}))

	graphNode, err := graph.Node("a")
	require.NoError(t, err)
	assert.Equal(t, KindNoop, graphNode.Kind)
	assert.NotNil(t, graphNode.Config)
	assert.NotNil(t, graphNode.Inputs)
}

func TestAddNode_Rejects(t *testing.T) {
	graph := New()
	require.NoError(t, graph.AddNode(Node{ID: "a"}))

	assert.ErrorIs(t, graph.AddNode(Node{ID: "a"}), ErrDuplicateNode)
	assert.Error(t, graph.AddNode(Node{ID: ""}))
	assert.Error(t, graph.AddNode(Node{ID: "b", Kind: "teleport"}))
}

// TestAddEdge_DanglingEndpoint_ReturnsError verifies that edges may only
// reference nodes already present.
func TestAddEdge_DanglingEndpoint_ReturnsError(t *testing.T) {
	graph := newTestGraph(t, []string{"a"}, nil)

	assert.ErrorIs(t, graph.AddEdge("a", "ghost"), ErrDanglingEdge)
	assert.ErrorIs(t, graph.AddEdge("ghost", "a"), ErrDanglingEdge)
	assert.ErrorIs(t, graph.AddEdge("a", "a"), ErrInvalidEdge)
	assert.Empty(t, graph.Edges())
}

func TestAddEdge_Duplicate_ReturnsError(t *testing.T) {
	graph := newTestGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
	assert.ErrorIs(t, graph.AddEdge("a", "b"), ErrInvalidEdge)
}

// TestEdgesInto_PreservesDefinitionOrder verifies that incoming edges come
// back in the order they were added, not in node insertion order.
func TestEdgesInto_PreservesDefinitionOrder(t *testing.T) {
	graph := newTestGraph(t,
		[]string{"a", "b", "c", "sink"},
		[][2]string{{"c", "sink"}, {"a", "sink"}, {"b", "sink"}, {"a", "b"}},
	)

	incoming := graph.EdgesInto("sink")
	require.Len(t, incoming, 3)
	assert.Equal(t, "c", incoming[0].Source)
	assert.Equal(t, "a", incoming[1].Source)
	assert.Equal(t, "b", incoming[2].Source)

	outgoing := graph.EdgesOutOf("a")
	require.Len(t, outgoing, 2)
	assert.Equal(t, "sink", outgoing[0].Target)
	assert.Equal(t, "b", outgoing[1].Target)

	assert.Empty(t, graph.EdgesInto("a"))
}

func TestNode_NotFound(t *testing.T) {
	graph := New()
	_, err := graph.Node("missing")
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

// TestRemoveNode_DropsEdgesAndState verifies that nothing about a removed
// node survives.
func TestRemoveNode_DropsEdgesAndState(t *testing.T) {
	graph := newTestGraph(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}})
	require.NoError(t, graph.SetOutput("b", TextOutput("hello")))

	require.NoError(t, graph.RemoveNode("b"))

	assert.Equal(t, []Edge{{Source: "a", Target: "c"}}, graph.Edges())
	assert.True(t, graph.Output("b").IsZero())
	assert.NoError(t, graph.Validate())
	assert.ErrorIs(t, graph.RemoveNode("b"), ErrNodeNotFound)

	// Re-adding the same ID starts from scratch.
	require.NoError(t, graph.AddNode(Node{ID: "b"}))
	assert.True(t, graph.Output("b").IsZero())
}

// TestNode_ReturnsSnapshot verifies that mutating a returned node does not
// leak into the graph.
func TestNode_ReturnsSnapshot(t *testing.T) {
	graph := New()
	require.NoError(t, graph.AddNode(Node{ID: "a", Inputs: map[string]any{"k": "v"}}))

	graphNode, err := graph.Node("a")
	require.NoError(t, err)
	graphNode.Inputs["k"] = "changed"

	value, found := graph.Input("a", "k")
	require.True(t, found)
	assert.Equal(t, "v", value)
}

func TestAppendText_ResetsNonTextOutput(t *testing.T) {
	graph := newTestGraph(t, []string{"a"}, nil)
	require.NoError(t, graph.SetOutput("a", JSONOutput(map[string]any{"x": 1.0})))

	output, err := graph.AppendText("a", "he")
	require.NoError(t, err)
	assert.Equal(t, "he", output.Text())

	output, err = graph.AppendText("a", "llo")
	require.NoError(t, err)
	assert.Equal(t, "hello", output.Text())
	assert.Equal(t, OutputText, output.Kind)

	_, err = graph.AppendText("missing", "x")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestResetRuntime_ClearsOutputsAndErrors(t *testing.T) {
	graph := newTestGraph(t, []string{"a"}, nil)
	require.NoError(t, graph.SetOutput("a", TextOutput("x")))
	require.NoError(t, graph.SetError("a", errors.New("boom")))

	graph.ResetRuntime()

	assert.True(t, graph.Output("a").IsZero())
	assert.NoError(t, graph.Err("a"))
}

// TestLevels_DiamondGraph_GroupsByDepth verifies level assignment and
// insertion ordering within a level.
func TestLevels_DiamondGraph_GroupsByDepth(t *testing.T) {
	graph := newTestGraph(t,
		[]string{"start", "right", "left", "end"},
		[][2]string{{"start", "left"}, {"start", "right"}, {"left", "end"}, {"right", "end"}},
	)

	levels, err := graph.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"start"}, {"right", "left"}, {"end"}}, levels)

	order, err := graph.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "right", "left", "end"}, order)
}

func TestLevels_Cycle_ReturnsErrCycle(t *testing.T) {
	graph := newTestGraph(t,
		[]string{"root", "a", "b"},
		[][2]string{{"root", "a"}, {"a", "b"}, {"b", "a"}},
	)

	_, err := graph.Levels()
	require.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "[a b]")
}

func TestLevels_DisconnectedNodes_AllInFirstLevel(t *testing.T) {
	graph := newTestGraph(t, []string{"x", "y", "z"}, nil)

	levels, err := graph.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "y", "z"}}, levels)
}

// TestAncestors_FollowsEveryPath verifies that only nodes upstream of the
// target are returned, in insertion order.
func TestAncestors_FollowsEveryPath(t *testing.T) {
	graph := newTestGraph(t,
		[]string{"side", "b", "a", "c", "target", "after"},
		[][2]string{{"a", "b"}, {"b", "target"}, {"c", "target"}, {"target", "after"}, {"side", "after"}},
	)

	ancestors, err := graph.Ancestors("target")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ancestors)

	ancestors, err = graph.Ancestors("a")
	require.NoError(t, err)
	assert.Empty(t, ancestors)

	_, err = graph.Ancestors("missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
