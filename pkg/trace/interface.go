// Package trace exports per-completion operation traces
package trace

import (
	"context"
	"time"
)

// Exporter defines the interface for exporting completion traces.
// Implementations must be safe for concurrent use.
type Exporter interface {
	// Export writes a trace record to the configured destination.
	Export(ctx context.Context, record *Record) error

	// Close flushes any buffered records and releases resources.
	Close() error
}

// Record is one sanitized completion trace. It carries no prompt or
// response content, only identifiers, timings and error kinds.
type Record struct {
	// Timestamp is the completion start time
	Timestamp time.Time `json:"timestamp"`

	// CompletionID uniquely identifies this completion (for correlation)
	CompletionID string `json:"completionId"`

	// Operation is "complete" or "stream"
	Operation string `json:"operation"`

	// Model is the model name the request was sent with
	Model string `json:"model"`

	// DurationMs is the total completion duration in milliseconds
	DurationMs int64 `json:"durationMs"`

	// Status is "success" or "error"
	Status string `json:"status"`

	// Spans contains per-stage timing and status
	Spans []Span `json:"spans"`

	// ErrorKind names the failure kind when Status == "error"
	// (template_format, unknown_placeholder, missing_placeholder,
	// invalid_json, schema_mismatch, stream_aborted, transport)
	ErrorKind string `json:"errorKind,omitempty"`

	// CacheHit reports whether the response came from the cache
	CacheHit bool `json:"cacheHit,omitempty"`
}

// Span is a single stage within a completion (render, request, parse,
// stream)
type Span struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"durationMs"`
	OK         bool   `json:"ok"`
	ErrorKind  string `json:"errorKind,omitempty"`
}

// FileExporterOption configures the file exporter
type FileExporterOption func(interface{})
