// Package promptform ties templates, the completion client and the
// response parser into single-use completion runs
package promptform

import (
	"context"
	"errors"

	"github.com/promptform/promptform/pkg/form"
	"github.com/promptform/promptform/pkg/llm"
	"github.com/promptform/promptform/pkg/metrics"
	"github.com/promptform/promptform/pkg/response"
	"github.com/promptform/promptform/pkg/store"
	"github.com/promptform/promptform/pkg/trace"
)

// Config holds configuration for a Completer. Only Settings is
// required; Cache, Metrics and Trace default to no-ops, and Client may
// be set to replace the built-in HTTP client (mainly in tests).
type Config struct {
	// Settings configures the completion endpoint.
	Settings llm.Settings

	// Client overrides the transport. When set, Settings is only used
	// for its model name.
	Client llm.CompletionClient

	// Cache stores raw completions by request digest. Nil disables
	// caching.
	Cache store.Cache

	// Metrics receives operation counts and durations.
	Metrics metrics.Collector

	// Trace receives per-completion trace records.
	Trace trace.Exporter
}

// Completer runs completions for forms. Safe for concurrent use; each
// run gets its own Completion.
type Completer struct {
	client  llm.CompletionClient
	model   string
	cache   store.Cache
	metrics metrics.Collector
	trace   trace.Exporter
}

// New creates a Completer from the config
func New(cfg Config) (*Completer, error) {
	collector := cfg.Metrics
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}
	exporter := cfg.Trace
	if exporter == nil {
		exporter = trace.NewNoopExporter()
	}

	client := cfg.Client
	if client == nil {
		if cfg.Settings.Metrics == nil {
			cfg.Settings.Metrics = collector
		}
		c, err := llm.NewClient(cfg.Settings)
		if err != nil {
			return nil, err
		}
		client = c
	}

	return &Completer{
		client:  client,
		model:   cfg.Settings.Model,
		cache:   cfg.Cache,
		metrics: collector,
		trace:   exporter,
	}, nil
}

// Complete renders the form, sends the request and parses the reply
// against the form's schema. For plain-text templates the parsed value
// is the raw string; otherwise it is a value tree matching the schema.
func (c *Completer) Complete(ctx context.Context, f *form.Form) (any, error) {
	return c.NewCompletion(f).Run(ctx)
}

// CompleteStream renders the form, streams the reply and invokes
// handler synchronously per fragment. Only valid for plain-text
// templates; structured schemas are rejected before any request is
// sent.
func (c *Completer) CompleteStream(ctx context.Context, f *form.Form, handler response.ChunkHandler) (string, error) {
	return c.NewCompletion(f).RunStream(ctx, handler)
}

// errorKind classifies a failure for metrics and traces. Every kind in
// the error surface is programmatically distinguishable, so callers and
// exporters can branch without parsing messages.
func errorKind(err error) string {
	var formatErr *form.TemplateFormatError
	var unknownErr *form.UnknownPlaceholderError
	var missingErr *form.MissingPlaceholderError
	var jsonErr *response.InvalidJSONError
	var schemaErr *response.SchemaMismatchError
	var abortErr *response.StreamAbortedError
	var apiErr *llm.APIError
	var retriesErr *llm.MaxRetriesError
	var configErr *llm.ConfigError

	switch {
	case errors.As(err, &formatErr):
		return "template_format"
	case errors.As(err, &unknownErr):
		return "unknown_placeholder"
	case errors.As(err, &missingErr):
		return "missing_placeholder"
	case errors.As(err, &jsonErr):
		return "invalid_json"
	case errors.As(err, &schemaErr):
		return "schema_mismatch"
	case errors.As(err, &abortErr):
		return "stream_aborted"
	case errors.As(err, &apiErr), errors.As(err, &retriesErr):
		return "transport"
	case errors.As(err, &configErr):
		return "config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
