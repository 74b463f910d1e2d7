package slog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leofalp/nodeflow/providers/observability"
)

// LevelTrace sits below slog.LevelDebug and carries output previews.
const LevelTrace = slog.LevelDebug - 4

// Observer implements observability.Provider on a slog.Logger. Spans become
// debug records at start and end. Instruments are logged at debug level
// unless a backend is attached with WithMetrics.
type Observer struct {
	logger   *slog.Logger
	external observability.Metrics

	counters   sync.Map // name -> *slogCounter
	histograms sync.Map // name -> *slogHistogram
}

// Option configures an Observer.
type Option func(*Observer)

// WithMetrics forwards Counter and Histogram to backend, typically the prom
// provider, instead of logging them.
func WithMetrics(backend observability.Metrics) Option {
	return func(observer *Observer) {
		observer.external = backend
	}
}

// New creates an observer writing to logger (slog.Default when nil).
func New(logger *slog.Logger, opts ...Option) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	observer := &Observer{logger: logger}
	for _, opt := range opts {
		opt(observer)
	}
	return observer
}

// Logger returns the underlying slog logger.
func (observer *Observer) Logger() *slog.Logger {
	return observer.logger
}

var _ observability.Provider = (*Observer)(nil)

func toSlog(attrs []observability.Attribute, leading ...slog.Attr) []slog.Attr {
	converted := make([]slog.Attr, 0, len(leading)+len(attrs))
	converted = append(converted, leading...)
	for _, attr := range attrs {
		converted = append(converted, slog.Any(attr.Key, attr.Value))
	}
	return converted
}

func (observer *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	observer.logger.LogAttrs(ctx, slog.LevelDebug, "span started",
		toSlog(attrs, slog.String("span", name), slog.String("event", "span.start"))...)

	return ctx, &span{
		name:    name,
		started: time.Now(),
		logger:  observer.logger,
		attrs:   attrs,
	}
}

type span struct {
	name    string
	started time.Time
	logger  *slog.Logger

	mu    sync.Mutex
	attrs []observability.Attribute
}

func (s *span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span ended",
		toSlog(s.attrs,
			slog.String("span", s.name),
			slog.String("event", "span.end"),
			slog.Duration(observability.AttrDuration, time.Since(s.started)),
		)...)
}

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	status := "unset"
	switch code {
	case observability.StatusOK:
		status = "ok"
	case observability.StatusError:
		status = "error"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, observability.String(observability.AttrStatus, status))
	if description != "" {
		s.attrs = append(s.attrs, observability.String(observability.AttrStatusDescription, description))
	}
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, observability.Error(err))
	s.mu.Unlock()

	s.logger.LogAttrs(context.Background(), slog.LevelError, "span error",
		slog.String("span", s.name),
		slog.String(observability.AttrError, err.Error()),
	)
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span event",
		toSlog(attrs, slog.String("span", s.name), slog.String("event", name))...)
}

func (observer *Observer) Counter(name string) observability.Counter {
	if observer.external != nil {
		return observer.external.Counter(name)
	}
	counter, _ := observer.counters.LoadOrStore(name, &slogCounter{name: name, logger: observer.logger})
	return counter.(*slogCounter)
}

func (observer *Observer) Histogram(name string) observability.Histogram {
	if observer.external != nil {
		return observer.external.Histogram(name)
	}
	histogram, _ := observer.histograms.LoadOrStore(name, &slogHistogram{name: name, logger: observer.logger})
	return histogram.(*slogHistogram)
}

// slogCounter keeps a running total so each record shows the current value.
type slogCounter struct {
	name   string
	logger *slog.Logger
	value  atomic.Int64
}

func (counter *slogCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	total := counter.value.Add(value)
	counter.logger.LogAttrs(ctx, slog.LevelDebug, "counter",
		toSlog(attrs,
			slog.String("metric", counter.name),
			slog.Int64("value", total),
			slog.Int64("delta", value),
		)...)
}

type slogHistogram struct {
	name   string
	logger *slog.Logger
}

func (histogram *slogHistogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	histogram.logger.LogAttrs(ctx, slog.LevelDebug, "histogram",
		toSlog(attrs,
			slog.String("metric", histogram.name),
			slog.Float64("value", value),
		)...)
}

func (observer *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, LevelTrace, msg, toSlog(attrs)...)
}

func (observer *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, slog.LevelDebug, msg, toSlog(attrs)...)
}

func (observer *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, slog.LevelInfo, msg, toSlog(attrs)...)
}

func (observer *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, slog.LevelWarn, msg, toSlog(attrs)...)
}

func (observer *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, slog.LevelError, msg, toSlog(attrs)...)
}
