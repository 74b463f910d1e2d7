package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leofalp/nodeflow/core/bus"
	"github.com/leofalp/nodeflow/core/node"
	"github.com/leofalp/nodeflow/core/runner"
	"github.com/leofalp/nodeflow/internal/config"
	"github.com/leofalp/nodeflow/providers/bus/redisbus"
	"github.com/leofalp/nodeflow/providers/observability/prom"
	observabilityslog "github.com/leofalp/nodeflow/providers/observability/slog"
	"github.com/leofalp/nodeflow/providers/tool"
	"github.com/leofalp/nodeflow/providers/tool/calculator"
)

// app holds the collaborators shared by every subcommand.
type app struct {
	config   *config.Config
	logger   *slog.Logger
	bus      bus.Bus
	metrics  *prom.Metrics
	observer *observabilityslog.Observer
	engine   *node.Engine
	closers  []io.Closer
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return newApp(cfg, cmd.ErrOrStderr()), nil
}

func newApp(cfg *config.Config, logOutput io.Writer) *app {
	logger := observabilityslog.NewLogger(logOutput, cfg.Log.Format, observabilityslog.ParseLogLevel(cfg.Log.Level))
	metrics := prom.New()
	observer := observabilityslog.New(logger, observabilityslog.WithMetrics(metrics))

	application := &app{config: cfg, logger: logger, metrics: metrics, observer: observer}

	if cfg.Redis.Addr != "" {
		var opts []redisbus.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisbus.WithPrefix(cfg.Redis.Prefix))
		}
		redisBus := redisbus.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		application.bus = redisBus
		application.closers = append(application.closers, redisBus)
		logger.Debug("using redis bus", "addr", cfg.Redis.Addr)
	} else {
		application.bus = bus.NewMemory()
	}

	var tools []tool.GenericTool
	if calculatorTool, err := calculator.NewTool(); err != nil {
		logger.Warn("calculator tool unavailable", "error", err.Error())
	} else {
		tools = append(tools, calculatorTool)
	}

	application.engine = node.New(
		node.WithBus(application.bus),
		node.WithLogger(logger),
		node.WithObserver(observer),
		node.WithTools(tools...),
		node.WithDefaults(node.Defaults{
			Endpoint:       cfg.LLM.Endpoint,
			APIKey:         cfg.LLM.APIKey,
			Model:          cfg.LLM.Model,
			SearchEndpoint: cfg.Search.Endpoint,

			EmbeddingsEndpoint: cfg.LLM.EmbeddingsEndpoint,
			EmbeddingsModel:    cfg.LLM.EmbeddingsModel,
		}),
	)
	return application
}

func (application *app) runner(opts ...runner.Option) *runner.Runner {
	base := []runner.Option{
		runner.WithMaxConcurrency(application.config.Runner.MaxConcurrency),
		runner.WithRunTimeout(application.config.Runner.RunTimeout),
		runner.WithObserver(application.observer),
	}
	return runner.New(application.engine, append(base, opts...)...)
}

func (application *app) Close() error {
	var first error
	for _, closer := range application.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
