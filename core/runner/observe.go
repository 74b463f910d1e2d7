package runner

import (
	"context"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/internal/utils"
	"github.com/leofalp/nodeflow/providers/observability"
)

const (
	// spanRun is the span name for a whole graph run.
	spanRun = "nodeflow.run"

	// spanNode is the span name for one node execution.
	spanNode = "nodeflow.node.execute"

	attrRunTotalNodes  = "run.total_nodes"
	attrRunTotalLevels = "run.total_levels"
	attrRunFailed      = "run.failed_nodes"
	attrSkipBlocker    = "node.skip_blocker"
	attrNodeOutput     = "node.output"
)

func (runner *Runner) observeRunStart(ctx context.Context, g *graph.Graph, runID string, levels int) (context.Context, observability.Span) {
	nodeCount := len(g.Nodes())
	runner.logger.Debug("run started", "run_id", runID, "nodes", nodeCount, "levels", levels)
	if runner.observer == nil {
		return ctx, nil
	}

	ctx, span := runner.observer.StartSpan(ctx, spanRun,
		observability.String(observability.AttrRunID, runID),
		observability.Int(attrRunTotalNodes, nodeCount),
		observability.Int(attrRunTotalLevels, levels),
	)
	return observability.ContextWithSpan(ctx, span), span
}

func (runner *Runner) observeRunEnd(ctx context.Context, span observability.Span, report *Report, runErr error) {
	failed := report.Failed()
	runner.logger.Info("run completed",
		"run_id", report.RunID,
		"nodes", len(report.Order),
		"failed", len(failed),
		"duration", report.Duration,
	)
	if runner.observer == nil {
		return
	}

	runner.observer.Histogram(observability.MetricRunDuration).Record(ctx, report.Duration.Seconds())
	if span == nil {
		return
	}
	span.SetAttributes(
		observability.StringSlice(attrRunFailed, failed),
		observability.Duration(observability.AttrDuration, report.Duration),
	)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(observability.StatusError, "run interrupted")
	} else {
		span.SetStatus(observability.StatusOK, "run completed")
	}
	span.End()
}

func (runner *Runner) observeNodeStart(ctx context.Context, graphNode graph.Node) (context.Context, observability.Span) {
	if runner.observer == nil {
		return ctx, nil
	}
	ctx, span := runner.observer.StartSpan(ctx, spanNode,
		observability.String(observability.AttrNodeID, graphNode.ID),
		observability.String(observability.AttrNodeKind, string(graphNode.Kind)),
	)
	return observability.ContextWithSpan(ctx, span), span
}

func (runner *Runner) observeNodeEnd(ctx context.Context, span observability.Span, graphNode graph.Node, nodeReport NodeReport, output graph.Output) {
	kind := observability.String(observability.AttrNodeKind, string(graphNode.Kind))
	status := observability.String(observability.AttrNodeStatus, string(nodeReport.Status))

	if nodeReport.Err != nil {
		runner.logger.Warn("node failed", "node", graphNode.ID, "kind", graphNode.Kind, "error", nodeReport.Error)
	} else {
		runner.logger.Debug("node finished", "node", graphNode.ID, "kind", graphNode.Kind,
			"status", nodeReport.Status, "duration", nodeReport.Duration)
	}
	if runner.observer == nil {
		return
	}

	runner.observer.Counter(observability.MetricNodeCount).Add(ctx, 1, kind, status)
	runner.observer.Histogram(observability.MetricNodeDuration).Record(ctx, nodeReport.Duration.Seconds(), kind)
	if !output.IsZero() {
		runner.observer.Trace(ctx, "node output",
			observability.String(observability.AttrNodeID, graphNode.ID), outputPreview(output))
	}
	if span == nil {
		return
	}
	span.SetAttributes(status, observability.Duration(observability.AttrDuration, nodeReport.Duration))
	if nodeReport.Err != nil {
		span.RecordError(nodeReport.Err)
		span.SetStatus(observability.StatusError, "node failed")
	} else {
		span.SetStatus(observability.StatusOK, "node "+string(nodeReport.Status))
	}
	span.End()
}

func (runner *Runner) observeNodeSkipped(ctx context.Context, graphNode graph.Node, blocker string) {
	runner.logger.Debug("node skipped", "node", graphNode.ID, "blocked_by", blocker)
	if runner.observer == nil {
		return
	}
	runner.observer.Counter(observability.MetricNodeCount).Add(ctx, 1,
		observability.String(observability.AttrNodeKind, string(graphNode.Kind)),
		observability.String(observability.AttrNodeStatus, "skipped"),
	)
	runner.observer.Debug(ctx, "node skipped",
		observability.String(observability.AttrNodeID, graphNode.ID),
		observability.String(attrSkipBlocker, blocker),
	)
}

// outputPreview shortens an output for log attributes.
func outputPreview(output graph.Output) observability.Attribute {
	return observability.String(attrNodeOutput, utils.TruncateString(output.Text(), 100))
}
