package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nodeflow",
		Short: "nodeflow runs graphs of LLM, tool and text-processing nodes",
		Long: `nodeflow executes dataflow graphs described in YAML or JSON.
Nodes run level by level; agent nodes stream their output through
downstream response nodes, and publisher/subscriber nodes exchange
payloads over a topic-addressed message bus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "Path to a YAML or JSON config file")
	root.PersistentFlags().String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	root.PersistentFlags().String("env-file", ".env", "Path to a .env file (ignored when missing)")

	root.AddCommand(newRunCmd(), newValidateCmd(), newServeCmd(), newBusCmd())
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
