package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector provides Prometheus metrics collection for
// completion operations
type PrometheusCollector struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	retriesTotal      *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	cacheTotal        *prometheus.CounterVec
	registry          *prometheus.Registry
}

// NewCollector creates a new Prometheus metrics collector with its own
// registry
func NewCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()

	operationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptform_operations_total",
			Help: "Total number of operations by type and status",
		},
		[]string{"operation", "status"},
	)

	operationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptform_operation_duration_seconds",
			Help:    "Duration of operations by type",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"operation"},
	)

	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptform_retries_total",
			Help: "Total number of retried request attempts by operation",
		},
		[]string{"operation"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptform_errors_total",
			Help: "Total number of errors by operation and kind",
		},
		[]string{"operation", "error_kind"},
	)

	cacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptform_cache_lookups_total",
			Help: "Total number of completion cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(operationsTotal)
	registry.MustRegister(operationDuration)
	registry.MustRegister(retriesTotal)
	registry.MustRegister(errorsTotal)
	registry.MustRegister(cacheTotal)

	return &PrometheusCollector{
		operationsTotal:   operationsTotal,
		operationDuration: operationDuration,
		retriesTotal:      retriesTotal,
		errorsTotal:       errorsTotal,
		cacheTotal:        cacheTotal,
		registry:          registry,
	}
}

// RecordOperation records the completion of an operation
func (m *PrometheusCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(durationMs) / 1000.0)
}

// RecordRetry records a retried request attempt
func (m *PrometheusCollector) RecordRetry(ctx context.Context, operation string) {
	m.retriesTotal.WithLabelValues(operation).Inc()
}

// RecordError records an error occurrence
func (m *PrometheusCollector) RecordError(ctx context.Context, operation string, errorKind string) {
	m.errorsTotal.WithLabelValues(operation, errorKind).Inc()
}

// RecordCache records a cache lookup outcome
func (m *PrometheusCollector) RecordCache(ctx context.Context, outcome string) {
	m.cacheTotal.WithLabelValues(outcome).Inc()
}

// Registry returns the Prometheus registry for HTTP exposure
func (m *PrometheusCollector) Registry() *prometheus.Registry {
	return m.registry
}
