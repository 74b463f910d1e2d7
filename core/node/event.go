package node

import (
	"context"
	"time"

	"github.com/leofalp/nodeflow/core/graph"
)

// EventType names a lifecycle event of a run.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventNodeStart    EventType = "node_start"
	EventNodeDelta    EventType = "node_delta"
	EventNodeComplete EventType = "node_complete"
	EventNodeHalted   EventType = "node_halted"
	EventNodeError    EventType = "node_error"
	EventNodeSkipped  EventType = "node_skipped"
	EventRunComplete  EventType = "run_complete"
)

// Event is delivered to listeners synchronously, in emission order.
type Event struct {
	Type     EventType     `json:"type"`
	RunID    string        `json:"run_id,omitempty"`
	NodeID   string        `json:"node_id,omitempty"`
	Kind     graph.Kind    `json:"kind,omitempty"`
	Status   Status        `json:"status,omitempty"`
	Delta    string        `json:"delta,omitempty"`
	Output   *graph.Output `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Time     time.Time     `json:"time"`
}

// Listener observes events. It must not block for long: streaming waits on it.
type Listener func(Event)

type listenersKey struct{}

type runIDKey struct{}

// ContextWithListener returns a context whose events also reach listener.
func ContextWithListener(ctx context.Context, listener Listener) context.Context {
	existing, _ := ctx.Value(listenersKey{}).([]Listener)
	listeners := make([]Listener, 0, len(existing)+1)
	listeners = append(listeners, existing...)
	listeners = append(listeners, listener)
	return context.WithValue(ctx, listenersKey{}, listeners)
}

// ContextWithRunID tags ctx with the id of the run it belongs to.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id set by ContextWithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey{}).(string)
	return runID
}

// Emit delivers event to the listeners attached to ctx, filling in the run
// id and timestamp when unset.
func Emit(ctx context.Context, event Event) {
	listeners, _ := ctx.Value(listenersKey{}).([]Listener)
	if len(listeners) == 0 {
		return
	}
	if event.RunID == "" {
		event.RunID = RunIDFromContext(ctx)
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	for _, listener := range listeners {
		listener(event)
	}
}
