package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/leofalp/nodeflow/core/graph"
)

// scheduleParser accepts five-field expressions and descriptors such as
// "@every 30s".
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// Schedule runs g on every tick of spec until ctx is done. A tick that fires
// while the previous run is still going is skipped. onRun, when not nil,
// receives the result of every run. Schedule blocks and returns nil once ctx
// is canceled and the in-flight run has finished.
func (runner *Runner) Schedule(ctx context.Context, g *graph.Graph, spec string, onRun func(*Report, error)) error {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return err
	}

	logger := cronLogger{logger: runner.logger}
	scheduler := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	scheduler.Schedule(schedule, cron.FuncJob(func() {
		report, runErr := runner.Run(ctx, g)
		if onRun != nil {
			onRun(report, runErr)
		}
	}))

	runner.logger.Info("schedule started", "spec", spec)
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	runner.logger.Info("schedule stopped", "spec", spec)
	return nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (adapter cronLogger) Info(msg string, keysAndValues ...any) {
	adapter.logger.Debug("cron: "+msg, keysAndValues...)
}

func (adapter cronLogger) Error(err error, msg string, keysAndValues ...any) {
	adapter.logger.Error("cron: "+msg, append(keysAndValues, "error", err.Error())...)
}
