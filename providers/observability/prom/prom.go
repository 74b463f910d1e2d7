// Package prom implements observability.Metrics on Prometheus client vectors.
//
// Metric names use the dotted convention of the observability package and are
// exported with dots replaced by underscores; counters get a _total suffix.
// Each metric has a fixed label set, taken from attributes with the same keys
// at record time. Attributes without a declared label are ignored.
package prom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leofalp/nodeflow/providers/observability"
)

// DefaultLabels declares the label keys of the metrics recorded by the engine.
var DefaultLabels = map[string][]string{
	observability.MetricRunDuration:  {},
	observability.MetricNodeCount:    {observability.AttrNodeKind, observability.AttrNodeStatus},
	observability.MetricNodeDuration: {observability.AttrNodeKind},
	observability.MetricBusPublished: {observability.AttrBusTopic},
	observability.MetricBusConsumed:  {observability.AttrBusTopic, observability.AttrStatus},
	observability.MetricLLMDeltas:    {observability.AttrLLMModel},
}

// Metrics is a Prometheus-backed observability.Metrics.
type Metrics struct {
	registry *prometheus.Registry
	labels   map[string][]string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// Option configures Metrics.
type Option func(*Metrics)

// WithRegistry records into an existing registry instead of a private one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(metrics *Metrics) {
		metrics.registry = registry
	}
}

// WithLabels declares the label keys of one metric.
func WithLabels(name string, keys ...string) Option {
	return func(metrics *Metrics) {
		metrics.labels[name] = keys
	}
}

// New creates Metrics with DefaultLabels and a private registry.
func New(opts ...Option) *Metrics {
	metrics := &Metrics{
		registry:   prometheus.NewRegistry(),
		labels:     make(map[string][]string, len(DefaultLabels)),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
	for name, keys := range DefaultLabels {
		metrics.labels[name] = keys
	}
	for _, opt := range opts {
		opt(metrics)
	}
	return metrics
}

var _ observability.Metrics = (*Metrics)(nil)

// Registry returns the registry metrics are recorded into.
func (metrics *Metrics) Registry() *prometheus.Registry {
	return metrics.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (metrics *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})
}

// Counter returns the counter for name, registering it on first use.
func (metrics *Metrics) Counter(name string) observability.Counter {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	if vector, exists := metrics.counters[name]; exists {
		return &counter{vector: vector, keys: metrics.labels[name]}
	}

	keys := metrics.labels[name]
	vector := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: exportName(name) + "_total",
		Help: fmt.Sprintf("Counter %s.", name),
	}, promLabels(keys))
	vector = register(metrics.registry, vector)
	metrics.counters[name] = vector
	return &counter{vector: vector, keys: keys}
}

// Histogram returns the histogram for name, registering it on first use.
func (metrics *Metrics) Histogram(name string) observability.Histogram {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	if vector, exists := metrics.histograms[name]; exists {
		return &histogram{vector: vector, keys: metrics.labels[name]}
	}

	keys := metrics.labels[name]
	vector := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    exportName(name),
		Help:    fmt.Sprintf("Histogram %s.", name),
		Buckets: prometheus.DefBuckets,
	}, promLabels(keys))
	vector = register(metrics.registry, vector)
	metrics.histograms[name] = vector
	return &histogram{vector: vector, keys: keys}
}

type counter struct {
	vector *prometheus.CounterVec
	keys   []string
}

func (c *counter) Add(_ context.Context, value int64, attrs ...observability.Attribute) {
	if value < 0 {
		return
	}
	c.vector.WithLabelValues(labelValues(c.keys, attrs)...).Add(float64(value))
}

type histogram struct {
	vector *prometheus.HistogramVec
	keys   []string
}

func (h *histogram) Record(_ context.Context, value float64, attrs ...observability.Attribute) {
	h.vector.WithLabelValues(labelValues(h.keys, attrs)...).Observe(value)
}

// register adds collector to registry, reusing an identical collector that is
// already registered.
func register[C prometheus.Collector](registry *prometheus.Registry, collector C) C {
	if err := registry.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, matches := already.ExistingCollector.(C); matches {
				return existing
			}
		}
		panic(fmt.Sprintf("prom: register metric: %v", err))
	}
	return collector
}

func exportName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

func promLabels(keys []string) []string {
	labels := make([]string, len(keys))
	for index, key := range keys {
		labels[index] = exportName(key)
	}
	return labels
}

// labelValues picks the value of every declared key from attrs, in key order.
func labelValues(keys []string, attrs []observability.Attribute) []string {
	values := make([]string, len(keys))
	for index, key := range keys {
		for _, attr := range attrs {
			if attr.Key == key {
				values[index] = fmt.Sprint(attr.Value)
				break
			}
		}
	}
	return values
}
