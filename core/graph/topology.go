package graph

import (
	"fmt"
	"sort"
)

// Levels groups node IDs by dependency depth over the direct edges. Level 0
// holds nodes with no incoming edges; a node at level N depends only on nodes
// at levels below N. Within a level nodes keep insertion order.
//
// A cycle among direct edges yields ErrCycle naming the nodes involved.
func (graph *Graph) Levels() ([][]string, error) {
	graph.mu.RLock()
	nodeOrder := make([]string, len(graph.nodeOrder))
	copy(nodeOrder, graph.nodeOrder)

	inDegree := make(map[string]int, len(graph.nodes))
	adjacency := make(map[string][]string, len(graph.nodes))
	for _, nodeID := range nodeOrder {
		inDegree[nodeID] = 0
	}
	for _, graphEdge := range graph.edges {
		adjacency[graphEdge.Source] = append(adjacency[graphEdge.Source], graphEdge.Target)
		inDegree[graphEdge.Target]++
	}
	graph.mu.RUnlock()

	return kahnLevels(inDegree, adjacency, nodeOrder)
}

// Order returns all node IDs flattened from Levels.
func (graph *Graph) Order() ([]string, error) {
	levels, err := graph.Levels()
	if err != nil {
		return nil, err
	}
	var order []string
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

// Ancestors returns the IDs of every node with a directed path to nodeID, in
// insertion order. A node is never its own ancestor.
func (graph *Graph) Ancestors(nodeID string) ([]string, error) {
	graph.mu.RLock()
	defer graph.mu.RUnlock()
	if _, found := graph.nodes[nodeID]; !found {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}

	sources := make(map[string][]string, len(graph.nodes))
	for _, graphEdge := range graph.edges {
		sources[graphEdge.Target] = append(sources[graphEdge.Target], graphEdge.Source)
	}

	seen := map[string]bool{nodeID: true}
	pending := []string{nodeID}
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for _, source := range sources[current] {
			if !seen[source] {
				seen[source] = true
				pending = append(pending, source)
			}
		}
	}

	var ancestors []string
	for _, candidate := range graph.nodeOrder {
		if candidate != nodeID && seen[candidate] {
			ancestors = append(ancestors, candidate)
		}
	}
	return ancestors, nil
}

// kahnLevels runs Kahn's algorithm, detecting cycles and assigning levels at
// the same time.
func kahnLevels(inDegree map[string]int, adjacency map[string][]string, nodeOrder []string) ([][]string, error) {
	nodePosition := make(map[string]int, len(nodeOrder))
	for index, nodeID := range nodeOrder {
		nodePosition[nodeID] = index
	}
	byInsertion := func(nodeIDs []string) {
		sort.Slice(nodeIDs, func(indexA, indexB int) bool {
			return nodePosition[nodeIDs[indexA]] < nodePosition[nodeIDs[indexB]]
		})
	}

	currentLevel := make([]string, 0)
	for _, nodeID := range nodeOrder {
		if inDegree[nodeID] == 0 {
			currentLevel = append(currentLevel, nodeID)
		}
	}

	levels := make([][]string, 0)
	processedCount := 0

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		processedCount += len(currentLevel)

		nextLevel := make([]string, 0)
		for _, nodeID := range currentLevel {
			for _, neighbor := range adjacency[nodeID] {
				inDegree[neighbor]--
				if inDegree[neighbor] == 0 {
					nextLevel = append(nextLevel, neighbor)
				}
			}
		}
		byInsertion(nextLevel)
		currentLevel = nextLevel
	}

	if processedCount != len(inDegree) {
		cycleNodes := make([]string, 0)
		for nodeID, degree := range inDegree {
			if degree > 0 {
				cycleNodes = append(cycleNodes, nodeID)
			}
		}
		sort.Strings(cycleNodes)
		return nil, fmt.Errorf("%w involving nodes: %v", ErrCycle, cycleNodes)
	}

	return levels, nil
}
