package node

import (
	"context"
	"iter"

	"github.com/leofalp/nodeflow/core/graph"
)

// streamInto applies a live delta sequence to the node. The node's
// accumulator is reset and its downstream receivers rebuilt first; then every
// delta is appended, emitted as an event and pushed downstream, in receipt
// order. Pushes from concurrently streaming nodes are serialized so a
// receiver never sees half of another source's update.
func (engine *Engine) streamInto(ctx context.Context, call *Call, deltas iter.Seq2[string, error]) (graph.Output, error) {
	g := call.Graph
	nodeID := call.Node.ID

	engine.pushMu.Lock()
	err := g.SetOutput(nodeID, graph.TextOutput(""))
	if err == nil {
		engine.push(ctx, g, nodeID, "", map[string]bool{nodeID: true})
	}
	engine.pushMu.Unlock()
	if err != nil {
		return graph.Output{}, err
	}

	for delta, err := range deltas {
		if err != nil {
			return graph.Output{}, err
		}
		if delta == "" {
			continue
		}
		if err = engine.appendDelta(ctx, call, delta); err != nil {
			return graph.Output{}, err
		}
	}
	return g.Output(nodeID), nil
}

func (engine *Engine) appendDelta(ctx context.Context, call *Call, delta string) error {
	engine.pushMu.Lock()
	defer engine.pushMu.Unlock()

	nodeID := call.Node.ID
	if _, err := call.Graph.AppendText(nodeID, delta); err != nil {
		return err
	}
	Emit(ctx, Event{Type: EventNodeDelta, NodeID: nodeID, Kind: call.Node.Kind, Delta: delta})
	engine.push(ctx, call.Graph, nodeID, delta, map[string]bool{nodeID: true})
	return nil
}

// push rebuilds every receiver downstream of source, depth first. An empty
// delta refreshes receivers without emitting events. visited stops an update
// from reaching the same node twice.
func (engine *Engine) push(ctx context.Context, g *graph.Graph, source, delta string, visited map[string]bool) {
	for _, receiverCall := range engine.receivers(g, source, visited) {
		target := receiverCall.call.Node
		output, err := receiverCall.receiver.Receive(ctx, receiverCall.call, delta)
		if err != nil {
			engine.logger.Warn("push to downstream node failed",
				"node", target.ID, "source", source, "error", err.Error())
			continue
		}
		if err = g.SetOutput(target.ID, output); err != nil {
			continue
		}
		if delta != "" {
			Emit(ctx, Event{Type: EventNodeDelta, NodeID: target.ID, Kind: target.Kind, Delta: delta})
		}
		engine.push(ctx, g, target.ID, delta, visited)
	}
}

type receiverCall struct {
	receiver Receiver
	call     *Call
}

// receivers lists the unvisited direct successors of source that accept
// pushes and marks them visited.
func (engine *Engine) receivers(g *graph.Graph, source string, visited map[string]bool) []receiverCall {
	var found []receiverCall
	for _, edge := range g.EdgesOutOf(source) {
		if visited[edge.Target] {
			continue
		}
		target, err := g.Node(edge.Target)
		if err != nil {
			continue
		}
		executor, err := engine.executorFor(target.Kind)
		if err != nil {
			continue
		}
		receiver, accepts := executor.(Receiver)
		if !accepts {
			continue
		}
		visited[edge.Target] = true
		found = append(found, receiverCall{receiver: receiver, call: &Call{Graph: g, Node: target}})
	}
	return found
}
