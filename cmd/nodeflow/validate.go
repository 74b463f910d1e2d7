package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/nodeflow/internal/graphfile"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <graph>",
		Short: "Check a graph file against the schema and for cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graphfile.Load(args[0])
			if err != nil {
				return err
			}
			levels, err := g.Levels()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d nodes, %d levels\n", args[0], len(g.Nodes()), len(levels))
			for index, level := range levels {
				fmt.Fprintf(out, "  %d: %v\n", index, level)
			}
			return nil
		},
	}
}
