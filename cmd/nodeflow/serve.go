package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leofalp/nodeflow/core/runner"
	"github.com/leofalp/nodeflow/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts an HTTP server that runs posted graphs, streams run events as
server-sent events, and exposes the message bus topics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				application.config.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			api := server.New(
				application.runner(runner.WithLogger(application.logger)),
				application.bus,
				server.WithLogger(application.logger),
				server.WithMetricsHandler(application.metrics.Handler()),
			)
			return api.ListenAndServe(ctx, application.config.Server.Addr, application.config.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().StringP("addr", "a", "", "Listen address (overrides server.addr)")
	return cmd
}
