// Package runner executes a whole graph through a node engine.
//
// Nodes are executed in dependency order, level by level. Within a level up
// to MaxConcurrency nodes run at once; the default of one runs the graph
// sequentially. A node whose direct upstream failed, halted or was skipped in
// the same run is skipped. Failures never stop unrelated branches: Run
// returns an error only for structural problems or cancellation, and the
// per-node outcome is in the returned Report.
//
// Basic usage:
//
//	engine := node.New(node.WithBus(bus.NewMemory()))
//	report, err := runner.New(engine).Run(ctx, g)
//	if err != nil {
//	    return err
//	}
//	for _, id := range report.Failed() {
//	    log.Printf("%s: %v", id, report.Nodes[id].Err)
//	}
//
// RunUpTo executes one node after everything upstream of it, and RunNode
// executes one node against whatever its upstream currently holds.
//
// Schedule re-runs a graph on a cron expression so subscribers waiting on the
// bus pick up payloads published between runs.
package runner
