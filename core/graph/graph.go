package graph

import (
	"errors"
	"fmt"
	"maps"
	"sync"
)

var (
	// ErrNodeNotFound is returned when a node ID is not part of the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when a node ID is added twice.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrDanglingEdge is returned when an edge references a node that is not in the graph.
	ErrDanglingEdge = errors.New("dangling edge")

	// ErrInvalidEdge is returned for self loops and duplicate edges.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrCycle is returned by Levels when the direct edges form a cycle.
	ErrCycle = errors.New("cycle detected")
)

// Node is a unit of the graph. Config is the per-node configuration blob
// (endpoint, credentials, parameters). Inputs holds declared per-node values,
// which executors lay over Config, plus values injected by the executor such
// as the aggregated upstream text.
//
// The node's output is not stored here: it lives in the graph's runtime
// state and is read with Graph.Output.
type Node struct {
	ID     string
	Kind   Kind
	Config map[string]any
	Inputs map[string]any
}

// Edge is a directed producer to consumer link.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// nodeState is the runtime side of a node, reset by RemoveNode and ResetRuntime.
type nodeState struct {
	output Output
	err    error
}

// Graph is an ordered collection of nodes and edges. It is safe for
// concurrent use.
type Graph struct {
	mu sync.RWMutex

	// nodeOrder preserves insertion order; it drives level ordering and
	// report output.
	nodeOrder []string

	nodes map[string]*Node
	edges []Edge
	state map[string]*nodeState
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		state: make(map[string]*nodeState),
	}
}

// AddNode registers a node. Nil Config and Inputs maps are replaced with
// empty ones and an empty Kind becomes KindNoop.
func (graph *Graph) AddNode(graphNode Node) error {
	if graphNode.ID == "" {
		return fmt.Errorf("node ID must not be empty")
	}
	if graphNode.Kind == "" {
		graphNode.Kind = KindNoop
	}
	if !graphNode.Kind.Valid() {
		return fmt.Errorf("node %q: unknown kind %q", graphNode.ID, graphNode.Kind)
	}
	if graphNode.Config == nil {
		graphNode.Config = make(map[string]any)
	}
	if graphNode.Inputs == nil {
		graphNode.Inputs = make(map[string]any)
	}

	graph.mu.Lock()
	defer graph.mu.Unlock()

	if _, exists := graph.nodes[graphNode.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, graphNode.ID)
	}

	stored := graphNode
	graph.nodes[graphNode.ID] = &stored
	graph.nodeOrder = append(graph.nodeOrder, graphNode.ID)
	graph.state[graphNode.ID] = &nodeState{}
	return nil
}

// RemoveNode deletes a node together with every edge touching it and its
// runtime state.
func (graph *Graph) RemoveNode(nodeID string) error {
	graph.mu.Lock()
	defer graph.mu.Unlock()

	if _, exists := graph.nodes[nodeID]; !exists {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}

	delete(graph.nodes, nodeID)
	delete(graph.state, nodeID)

	for index, orderedID := range graph.nodeOrder {
		if orderedID == nodeID {
			graph.nodeOrder = append(graph.nodeOrder[:index], graph.nodeOrder[index+1:]...)
			break
		}
	}

	keptEdges := graph.edges[:0]
	for _, graphEdge := range graph.edges {
		if graphEdge.Source != nodeID && graphEdge.Target != nodeID {
			keptEdges = append(keptEdges, graphEdge)
		}
	}
	graph.edges = keptEdges
	return nil
}

// AddEdge links source to target. Both endpoints must already exist.
func (graph *Graph) AddEdge(source, target string) error {
	if source == "" || target == "" {
		return fmt.Errorf("%w: endpoints must not be empty (source=%q, target=%q)", ErrInvalidEdge, source, target)
	}
	if source == target {
		return fmt.Errorf("%w: self-loop on node %q", ErrInvalidEdge, source)
	}

	graph.mu.Lock()
	defer graph.mu.Unlock()

	if _, exists := graph.nodes[source]; !exists {
		return fmt.Errorf("%w: source node %q does not exist", ErrDanglingEdge, source)
	}
	if _, exists := graph.nodes[target]; !exists {
		return fmt.Errorf("%w: target node %q does not exist", ErrDanglingEdge, target)
	}
	for _, graphEdge := range graph.edges {
		if graphEdge.Source == source && graphEdge.Target == target {
			return fmt.Errorf("%w: duplicate edge from %q to %q", ErrInvalidEdge, source, target)
		}
	}

	graph.edges = append(graph.edges, Edge{Source: source, Target: target})
	return nil
}

// Node returns a copy of the node with the given ID. Inputs is a snapshot.
func (graph *Graph) Node(nodeID string) (Node, error) {
	graph.mu.RLock()
	defer graph.mu.RUnlock()

	graphNode, exists := graph.nodes[nodeID]
	if !exists {
		return Node{}, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	snapshot := *graphNode
	snapshot.Inputs = maps.Clone(graphNode.Inputs)
	return snapshot, nil
}

// Nodes returns copies of all nodes in insertion order.
func (graph *Graph) Nodes() []Node {
	graph.mu.RLock()
	defer graph.mu.RUnlock()

	nodes := make([]Node, 0, len(graph.nodeOrder))
	for _, nodeID := range graph.nodeOrder {
		snapshot := *graph.nodes[nodeID]
		snapshot.Inputs = maps.Clone(snapshot.Inputs)
		nodes = append(nodes, snapshot)
	}
	return nodes
}

// Edges returns all edges in definition order.
func (graph *Graph) Edges() []Edge {
	graph.mu.RLock()
	defer graph.mu.RUnlock()

	edges := make([]Edge, len(graph.edges))
	copy(edges, graph.edges)
	return edges
}

// EdgesInto returns the edges whose target is nodeID, in definition order.
func (graph *Graph) EdgesInto(nodeID string) []Edge {
	graph.mu.RLock()
	defer graph.mu.RUnlock()

	var incoming []Edge
	for _, graphEdge := range graph.edges {
		if graphEdge.Target == nodeID {
			incoming = append(incoming, graphEdge)
		}
	}
	return incoming
}

// EdgesOutOf returns the edges whose source is nodeID, in definition order.
func (graph *Graph) EdgesOutOf(nodeID string) []Edge {
	graph.mu.RLock()
	defer graph.mu.RUnlock()

	var outgoing []Edge
	for _, graphEdge := range graph.edges {
		if graphEdge.Source == nodeID {
			outgoing = append(outgoing, graphEdge)
		}
	}
	return outgoing
}

// Validate checks that every edge references nodes present in the graph.
func (graph *Graph) Validate() error {
	graph.mu.RLock()
	defer graph.mu.RUnlock()

	var problems []error
	for _, graphEdge := range graph.edges {
		if _, exists := graph.nodes[graphEdge.Source]; !exists {
			problems = append(problems, fmt.Errorf("%w: source node %q does not exist", ErrDanglingEdge, graphEdge.Source))
		}
		if _, exists := graph.nodes[graphEdge.Target]; !exists {
			problems = append(problems, fmt.Errorf("%w: target node %q does not exist", ErrDanglingEdge, graphEdge.Target))
		}
	}
	return errors.Join(problems...)
}

// --- Runtime state ---

// Output returns the node's published output. Unknown nodes yield a zero Output.
func (graph *Graph) Output(nodeID string) Output {
	graph.mu.RLock()
	defer graph.mu.RUnlock()

	if state, exists := graph.state[nodeID]; exists {
		return state.output
	}
	return Output{}
}

// SetOutput replaces the node's output.
func (graph *Graph) SetOutput(nodeID string, output Output) error {
	graph.mu.Lock()
	defer graph.mu.Unlock()

	state, exists := graph.state[nodeID]
	if !exists {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	state.output = output
	return nil
}

// AppendText appends delta to the node's text output and returns the result.
// A non-text output is replaced by a fresh text accumulator first.
func (graph *Graph) AppendText(nodeID string, delta string) (Output, error) {
	graph.mu.Lock()
	defer graph.mu.Unlock()

	state, exists := graph.state[nodeID]
	if !exists {
		return Output{}, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	current := ""
	if state.output.Kind == OutputText {
		current, _ = state.output.Value.(string)
	}
	state.output = TextOutput(current + delta)
	return state.output, nil
}

// Err returns the error recorded by the node's last execution.
func (graph *Graph) Err(nodeID string) error {
	graph.mu.RLock()
	defer graph.mu.RUnlock()

	if state, exists := graph.state[nodeID]; exists {
		return state.err
	}
	return nil
}

// SetError records the error of the node's last execution. A nil error clears it.
func (graph *Graph) SetError(nodeID string, err error) error {
	graph.mu.Lock()
	defer graph.mu.Unlock()

	state, exists := graph.state[nodeID]
	if !exists {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	state.err = err
	return nil
}

// Input returns a single input value of the node.
func (graph *Graph) Input(nodeID, key string) (any, bool) {
	graph.mu.RLock()
	defer graph.mu.RUnlock()

	graphNode, exists := graph.nodes[nodeID]
	if !exists {
		return nil, false
	}
	value, found := graphNode.Inputs[key]
	return value, found
}

// SetInput sets a single input value of the node.
func (graph *Graph) SetInput(nodeID, key string, value any) error {
	graph.mu.Lock()
	defer graph.mu.Unlock()

	graphNode, exists := graph.nodes[nodeID]
	if !exists {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	graphNode.Inputs[key] = value
	return nil
}

// DeleteInput removes a single input value of the node.
func (graph *Graph) DeleteInput(nodeID, key string) {
	graph.mu.Lock()
	defer graph.mu.Unlock()

	if graphNode, exists := graph.nodes[nodeID]; exists {
		delete(graphNode.Inputs, key)
	}
}

// ResetRuntime clears the output and error of every node. Inputs and config
// are kept.
func (graph *Graph) ResetRuntime() {
	graph.mu.Lock()
	defer graph.mu.Unlock()

	for _, state := range graph.state {
		state.output = Output{}
		state.err = nil
	}
}
