// Package metrics collects operational metrics for completions
package metrics

import "context"

// Collector is the interface for metrics collection. The Prometheus
// implementation is opt-in; the no-op collector is the default.
type Collector interface {
	// RecordOperation records one finished operation (render, complete,
	// stream, parse) with its status and duration.
	RecordOperation(ctx context.Context, operation string, status string, durationMs int64)

	// RecordRetry records one retried request attempt.
	RecordRetry(ctx context.Context, operation string)

	// RecordError records an error occurrence by kind.
	RecordError(ctx context.Context, operation string, errorKind string)

	// RecordCache records a cache lookup outcome ("hit" or "miss").
	RecordCache(ctx context.Context, outcome string)
}
