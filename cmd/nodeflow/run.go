package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/core/node"
	"github.com/leofalp/nodeflow/core/runner"
	"github.com/leofalp/nodeflow/internal/graphfile"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <graph>",
		Short: "Run a graph file and print the outputs of its sink nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, _ := cmd.Flags().GetBool("stream")
			watch, _ := cmd.Flags().GetString("watch")
			nodeID, _ := cmd.Flags().GetString("node")

			g, err := graphfile.Load(args[0])
			if err != nil {
				return err
			}

			application, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var opts []runner.Option
			if stream {
				opts = append(opts, runner.WithListener(deltaPrinter(out)))
			}
			graphRunner := application.runner(opts...)

			if nodeID != "" {
				report, err := graphRunner.RunUpTo(ctx, g, nodeID)
				if err != nil {
					return err
				}
				switch nodeReport := report.Nodes[nodeID]; nodeReport.Status {
				case node.StatusFailed:
					return fmt.Errorf("node %q failed: %w", nodeID, nodeReport.Err)
				case node.StatusSkipped:
					return fmt.Errorf("node %q skipped, upstream failed: %s", nodeID, strings.Join(report.Failed(), ", "))
				}
				fmt.Fprintln(out, g.Output(nodeID).Text())
				return nil
			}

			if watch != "" {
				return graphRunner.Schedule(ctx, g, watch, func(report *runner.Report, err error) {
					if err != nil {
						application.logger.Error("scheduled run failed", "error", err.Error())
						return
					}
					printReport(out, g, report, !stream)
				})
			}

			report, err := graphRunner.Run(ctx, g)
			if err != nil {
				return err
			}
			printReport(out, g, report, !stream)
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d node(s) failed: %s", len(failed), strings.Join(failed, ", "))
			}
			return nil
		},
	}

	cmd.Flags().Bool("stream", false, "Print agent deltas as they arrive")
	cmd.Flags().String("watch", "", "Re-run the graph on a cron schedule (e.g. \"@every 5m\")")
	cmd.Flags().String("node", "", "Execute one node after the nodes upstream of it and print its output")
	return cmd
}

// deltaPrinter writes the deltas produced by agent nodes. Parallel levels
// emit from several goroutines, so writes are serialized.
func deltaPrinter(out io.Writer) node.Listener {
	var mu sync.Mutex
	return func(event node.Event) {
		if event.Type != node.EventNodeDelta || event.Kind != graph.KindAgent {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(out, event.Delta)
	}
}

func printReport(out io.Writer, g *graph.Graph, report *runner.Report, withOutputs bool) {
	if withOutputs {
		outputs := runner.Outputs(g, report)
		for _, id := range runner.Sinks(g) {
			output, ok := outputs[id]
			if !ok || output.IsZero() {
				continue
			}
			fmt.Fprintf(out, "== %s\n%s\n", id, output.Text())
		}
	} else {
		fmt.Fprintln(out)
	}

	for _, id := range report.Order {
		nodeReport := report.Nodes[id]
		if nodeReport.Error != "" {
			fmt.Fprintf(out, "! %s %s: %s\n", id, nodeReport.Status, nodeReport.Error)
		}
	}
}
