package metrics

import "context"

// NoopCollector discards every measurement. Used when no collector is
// configured.
type NoopCollector struct{}

// NewNoopCollector creates a no-op collector
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

// RecordOperation does nothing
func (n *NoopCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
}

// RecordRetry does nothing
func (n *NoopCollector) RecordRetry(ctx context.Context, operation string) {}

// RecordError does nothing
func (n *NoopCollector) RecordError(ctx context.Context, operation string, errorKind string) {}

// RecordCache does nothing
func (n *NoopCollector) RecordCache(ctx context.Context, outcome string) {}
