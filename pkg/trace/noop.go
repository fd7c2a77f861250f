package trace

import "context"

// NoopExporter is a zero-overhead exporter that does nothing.
// Used when no exporter is configured or tracing is disabled.
type NoopExporter struct{}

// NewNoopExporter creates a no-op exporter
func NewNoopExporter() *NoopExporter {
	return &NoopExporter{}
}

// Export does nothing
func (n *NoopExporter) Export(ctx context.Context, record *Record) error {
	return nil
}

// Close does nothing
func (n *NoopExporter) Close() error {
	return nil
}
