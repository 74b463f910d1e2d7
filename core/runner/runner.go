package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/core/node"
	"github.com/leofalp/nodeflow/providers/observability"
)

// Runner drives a node engine over whole graphs.
type Runner struct {
	engine *node.Engine

	maxConcurrency int
	runTimeout     time.Duration
	observer       observability.Provider
	listeners      []node.Listener
	logger         *slog.Logger
}

// New creates a Runner that executes nodes with engine.
func New(engine *node.Engine, opts ...Option) *Runner {
	runner := &Runner{
		engine:         engine,
		maxConcurrency: 1,
	}
	for _, opt := range opts {
		opt(runner)
	}
	if runner.logger == nil {
		runner.logger = engine.Logger()
	}
	return runner
}

// NodeReport is the outcome of one node in a run.
type NodeReport struct {
	Status   node.Status   `json:"status"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report summarizes a run. Order lists node ids in execution order.
type Report struct {
	RunID    string                `json:"run_id"`
	Order    []string              `json:"order"`
	Nodes    map[string]NodeReport `json:"nodes"`
	Duration time.Duration         `json:"duration"`
}

// Failed returns the ids of failed nodes in execution order.
func (report *Report) Failed() []string {
	var failed []string
	for _, nodeID := range report.Order {
		if report.Nodes[nodeID].Status == node.StatusFailed {
			failed = append(failed, nodeID)
		}
	}
	return failed
}

// Run executes every node of g once, in dependency order. A cycle or a
// dangling edge is returned before anything executes. Cancellation stops the
// run between levels and is returned together with the partial report.
func (runner *Runner) Run(ctx context.Context, g *graph.Graph) (*Report, error) {
	return runner.run(ctx, g, nil)
}

// RunUpTo executes nodeID and its ancestors once, in dependency order, with
// the skip rules of Run. Nodes that are not upstream of nodeID keep their
// current outputs.
func (runner *Runner) RunUpTo(ctx context.Context, g *graph.Graph, nodeID string) (*Report, error) {
	ancestors, err := g.Ancestors(nodeID)
	if err != nil {
		return nil, err
	}
	included := map[string]bool{nodeID: true}
	for _, ancestor := range ancestors {
		included[ancestor] = true
	}
	return runner.run(ctx, g, included)
}

// run executes the nodes of g level by level. A nil included runs every node.
func (runner *Runner) run(ctx context.Context, g *graph.Graph, included map[string]bool) (*Report, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), Nodes: make(map[string]NodeReport)}
	ctx = runner.runContext(ctx, report.RunID)
	if runner.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runner.runTimeout)
		defer cancel()
	}

	start := time.Now()
	var rootSpan observability.Span
	ctx, rootSpan = runner.observeRunStart(ctx, g, report.RunID, len(levels))
	node.Emit(ctx, node.Event{Type: node.EventRunStart})

	for levelIndex, level := range levels {
		if err = ctx.Err(); err != nil {
			err = fmt.Errorf("run canceled before level %d: %w", levelIndex, err)
			break
		}
		if included != nil {
			level = slices.DeleteFunc(slices.Clone(level), func(nodeID string) bool {
				return !included[nodeID]
			})
		}
		runner.runLevel(ctx, g, level, report)
	}

	report.Duration = time.Since(start)
	node.Emit(ctx, node.Event{Type: node.EventRunComplete, Duration: report.Duration})
	runner.observeRunEnd(ctx, rootSpan, report, err)
	return report, err
}

// RunNode executes one node on demand, outside a full run. The node sees
// whatever its upstream currently holds; re-running it overwrites its output.
func (runner *Runner) RunNode(ctx context.Context, g *graph.Graph, nodeID string) (NodeReport, error) {
	if _, err := g.Node(nodeID); err != nil {
		return NodeReport{}, err
	}
	ctx = runner.runContext(ctx, uuid.NewString())
	nodeReport := runner.executeNode(ctx, g, nodeID)
	return nodeReport, nodeReport.Err
}

func (runner *Runner) runContext(ctx context.Context, runID string) context.Context {
	ctx = node.ContextWithRunID(ctx, runID)
	for _, listener := range runner.listeners {
		ctx = node.ContextWithListener(ctx, listener)
	}
	if runner.observer != nil {
		ctx = observability.ContextWithObserver(ctx, runner.observer)
	}
	return ctx
}

// runLevel executes the nodes of one level. Skip decisions only read
// statuses of earlier levels, so nodes of a level are independent.
func (runner *Runner) runLevel(ctx context.Context, g *graph.Graph, level []string, report *Report) {
	var (
		mu        sync.Mutex
		waitGroup sync.WaitGroup
		semaphore = make(chan struct{}, runner.maxConcurrency)
	)
	record := func(nodeID string, nodeReport NodeReport) {
		mu.Lock()
		defer mu.Unlock()
		report.Order = append(report.Order, nodeID)
		report.Nodes[nodeID] = nodeReport
	}

	for _, nodeID := range level {
		if blocker, blocked := upstreamBlocker(g, nodeID, report); blocked {
			record(nodeID, runner.skipNode(ctx, g, nodeID, blocker))
			continue
		}

		semaphore <- struct{}{}
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			defer func() { <-semaphore }()
			record(nodeID, runner.executeNode(ctx, g, nodeID))
		}()
	}
	waitGroup.Wait()
}

// upstreamBlocker returns the first direct source that did not produce.
func upstreamBlocker(g *graph.Graph, nodeID string, report *Report) (string, bool) {
	for _, edge := range g.EdgesInto(nodeID) {
		switch report.Nodes[edge.Source].Status {
		case node.StatusFailed, node.StatusHalted, node.StatusSkipped:
			return edge.Source, true
		}
	}
	return "", false
}

func (runner *Runner) skipNode(ctx context.Context, g *graph.Graph, nodeID, blocker string) NodeReport {
	_ = g.SetOutput(nodeID, graph.Output{})
	_ = g.SetError(nodeID, nil)

	graphNode, _ := g.Node(nodeID)
	node.Emit(ctx, node.Event{Type: node.EventNodeSkipped, NodeID: nodeID, Kind: graphNode.Kind, Status: node.StatusSkipped})
	runner.observeNodeSkipped(ctx, graphNode, blocker)
	return NodeReport{Status: node.StatusSkipped}
}

func (runner *Runner) executeNode(ctx context.Context, g *graph.Graph, nodeID string) NodeReport {
	graphNode, _ := g.Node(nodeID)
	nodeCtx, span := runner.observeNodeStart(ctx, graphNode)
	node.Emit(nodeCtx, node.Event{Type: node.EventNodeStart, NodeID: nodeID, Kind: graphNode.Kind})

	start := time.Now()
	status, err := runner.engine.Execute(nodeCtx, g, nodeID)
	nodeReport := NodeReport{Status: status, Err: err, Duration: time.Since(start)}
	if err != nil {
		nodeReport.Error = err.Error()
	}

	event := node.Event{NodeID: nodeID, Kind: graphNode.Kind, Status: status, Duration: nodeReport.Duration}
	switch status {
	case node.StatusFailed:
		event.Type = node.EventNodeError
		event.Error = nodeReport.Error
	case node.StatusHalted:
		event.Type = node.EventNodeHalted
	default:
		event.Type = node.EventNodeComplete
	}
	output := g.Output(nodeID)
	if !output.IsZero() {
		event.Output = &output
	}
	node.Emit(nodeCtx, event)
	runner.observeNodeEnd(nodeCtx, span, graphNode, nodeReport, output)
	return nodeReport
}

// Outputs returns the output of every node in report that produced one.
func Outputs(g *graph.Graph, report *Report) map[string]graph.Output {
	outputs := make(map[string]graph.Output)
	for _, nodeID := range report.Order {
		if output := g.Output(nodeID); !output.IsZero() {
			outputs[nodeID] = output
		}
	}
	return outputs
}

// IsStructural reports whether err stopped a run before any node executed.
func IsStructural(err error) bool {
	return errors.Is(err, graph.ErrCycle) || errors.Is(err, graph.ErrDanglingEdge)
}

// Sinks returns the ids of nodes without outgoing edges, in graph order.
func Sinks(g *graph.Graph) []string {
	var sinks []string
	for _, graphNode := range g.Nodes() {
		if len(g.EdgesOutOf(graphNode.ID)) == 0 {
			sinks = append(sinks, graphNode.ID)
		}
	}
	return sinks
}
