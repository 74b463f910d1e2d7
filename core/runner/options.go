package runner

import (
	"log/slog"
	"time"

	"github.com/leofalp/nodeflow/core/node"
	"github.com/leofalp/nodeflow/providers/observability"
)

// Option is a functional option for configuring a Runner.
type Option func(*Runner)

// WithMaxConcurrency limits how many nodes of one level execute in parallel.
// Values below one are treated as one.
//
// Example:
//
//	runner.New(engine, runner.WithMaxConcurrency(4))
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(runner *Runner) {
		runner.maxConcurrency = max(maxConcurrency, 1)
	}
}

// WithRunTimeout bounds the duration of a whole run. Zero means no timeout.
func WithRunTimeout(timeout time.Duration) Option {
	return func(runner *Runner) {
		runner.runTimeout = timeout
	}
}

// WithObserver reports spans, node counters and duration histograms.
func WithObserver(observer observability.Provider) Option {
	return func(runner *Runner) {
		runner.observer = observer
	}
}

// WithListener receives every event of every run, in emission order.
// Listeners attached to the run context with node.ContextWithListener are
// called as well.
func WithListener(listener node.Listener) Option {
	return func(runner *Runner) {
		runner.listeners = append(runner.listeners, listener)
	}
}

// WithLogger sets the logger used for run summaries and schedule errors.
func WithLogger(logger *slog.Logger) Option {
	return func(runner *Runner) {
		runner.logger = logger
	}
}
