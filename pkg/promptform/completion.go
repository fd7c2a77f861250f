package promptform

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/promptform/promptform/pkg/form"
	"github.com/promptform/promptform/pkg/llm"
	"github.com/promptform/promptform/pkg/response"
	"github.com/promptform/promptform/pkg/store"
	"github.com/promptform/promptform/pkg/trace"
)

// Phase is the lifecycle state of a single completion
type Phase string

const (
	PhasePending          Phase = "pending"
	PhaseRendering        Phase = "rendering"
	PhaseAwaitingResponse Phase = "awaiting_response"
	PhaseParsingJSON      Phase = "parsing_json"
	PhaseStreaming        Phase = "streaming"
	PhaseDone             Phase = "done"
	PhaseFailed           Phase = "failed"
)

// ErrCompletionReused is returned when a finished completion is run
// again. Completions are single-use; no phase is ever re-entered.
var ErrCompletionReused = errors.New("completion already ran, create a new one")

// Completion is one single-use run of a form through the client and
// parser. Not safe for concurrent use.
type Completion struct {
	id      string
	owner   *Completer
	form    *form.Form
	phase   Phase
	spans   []trace.Span
	started time.Time
}

// NewCompletion creates a pending completion for the form
func (c *Completer) NewCompletion(f *form.Form) *Completion {
	return &Completion{
		id:    uuid.NewString(),
		owner: c,
		form:  f,
		phase: PhasePending,
	}
}

// ID returns the completion's correlation identifier
func (comp *Completion) ID() string { return comp.id }

// Phase returns the current lifecycle phase
func (comp *Completion) Phase() Phase { return comp.phase }

// Run executes a non-streaming completion: render, request (or cache
// hit), parse. The parsed value tree is returned; on any failure the
// typed error from the owning package is propagated untouched.
func (comp *Completion) Run(ctx context.Context) (any, error) {
	if comp.phase != PhasePending {
		return nil, ErrCompletionReused
	}
	comp.started = time.Now()

	req, err := comp.render()
	if err != nil {
		return nil, comp.fail(ctx, "complete", err)
	}

	raw, cacheHit, err := comp.fetch(ctx, req)
	if err != nil {
		return nil, comp.fail(ctx, "complete", err)
	}

	comp.phase = PhaseParsingJSON
	parseStart := time.Now()
	parsed, err := response.Parse(raw, comp.form.Template().Response())
	comp.span("parse", parseStart, err)
	if err != nil {
		return nil, comp.fail(ctx, "complete", err)
	}

	comp.finish(ctx, "complete", cacheHit)
	return parsed, nil
}

// RunStream executes a streaming completion. The template must be
// unstructured (plain text); handler runs to completion before the next
// fragment is pulled.
func (comp *Completion) RunStream(ctx context.Context, handler response.ChunkHandler) (string, error) {
	if comp.phase != PhasePending {
		return "", ErrCompletionReused
	}
	comp.started = time.Now()

	if !comp.form.Template().Unstructured() {
		err := &form.TemplateFormatError{Reason: "streaming is only valid for plain-text response templates"}
		return "", comp.fail(ctx, "stream", err)
	}

	req, err := comp.render()
	if err != nil {
		return "", comp.fail(ctx, "stream", err)
	}

	comp.phase = PhaseAwaitingResponse
	requestStart := time.Now()
	frags, err := comp.owner.client.Stream(ctx, req)
	comp.span("request", requestStart, err)
	if err != nil {
		return "", comp.fail(ctx, "stream", err)
	}
	if closer, ok := frags.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	comp.phase = PhaseStreaming
	streamStart := time.Now()
	full, err := response.ParseStream(frags, handler)
	comp.span("stream", streamStart, err)
	if err != nil {
		return "", comp.fail(ctx, "stream", err)
	}

	if comp.owner.cache != nil {
		key := store.Digest(comp.owner.model, req.Messages, req.ResponseFormat)
		if err := comp.owner.cache.Put(ctx, key, full); err != nil {
			log.Printf("promptform: failed to cache streamed completion: %v", err)
		}
	}

	comp.finish(ctx, "stream", false)
	return full, nil
}

func (comp *Completion) render() (llm.Request, error) {
	comp.phase = PhaseRendering
	renderStart := time.Now()

	messages, err := comp.form.Messages()
	comp.span("render", renderStart, err)
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{
		Messages:       messages,
		ResponseFormat: comp.form.ResponseFormat(),
	}, nil
}

// fetch returns the raw completion text, consulting the cache first
func (comp *Completion) fetch(ctx context.Context, req llm.Request) (raw string, cacheHit bool, err error) {
	comp.phase = PhaseAwaitingResponse

	var key string
	if comp.owner.cache != nil {
		key = store.Digest(comp.owner.model, req.Messages, req.ResponseFormat)
		cached, cacheErr := comp.owner.cache.Get(ctx, key)
		if cacheErr == nil {
			comp.owner.metrics.RecordCache(ctx, "hit")
			return cached, true, nil
		}
		if !errors.Is(cacheErr, store.ErrNotFound) {
			log.Printf("promptform: cache lookup failed: %v", cacheErr)
		}
		comp.owner.metrics.RecordCache(ctx, "miss")
	}

	requestStart := time.Now()
	raw, err = comp.owner.client.Complete(ctx, req)
	comp.span("request", requestStart, err)
	if err != nil {
		return "", false, err
	}

	if comp.owner.cache != nil {
		if cacheErr := comp.owner.cache.Put(ctx, key, raw); cacheErr != nil {
			log.Printf("promptform: failed to cache completion: %v", cacheErr)
		}
	}
	return raw, false, nil
}

func (comp *Completion) span(name string, start time.Time, err error) {
	span := trace.Span{
		Name:       name,
		DurationMs: time.Since(start).Milliseconds(),
		OK:         err == nil,
	}
	if err != nil {
		span.ErrorKind = errorKind(err)
	}
	comp.spans = append(comp.spans, span)
}

func (comp *Completion) finish(ctx context.Context, operation string, cacheHit bool) {
	comp.phase = PhaseDone
	duration := time.Since(comp.started).Milliseconds()
	comp.owner.metrics.RecordOperation(ctx, operation, "success", duration)
	comp.export(ctx, operation, "success", "", duration, cacheHit)
}

func (comp *Completion) fail(ctx context.Context, operation string, err error) error {
	comp.phase = PhaseFailed
	kind := errorKind(err)
	duration := time.Since(comp.started).Milliseconds()
	comp.owner.metrics.RecordOperation(ctx, operation, "error", duration)
	comp.owner.metrics.RecordError(ctx, operation, kind)
	comp.export(ctx, operation, "error", kind, duration, false)
	return err
}

func (comp *Completion) export(ctx context.Context, operation, status, kind string, durationMs int64, cacheHit bool) {
	record := &trace.Record{
		Timestamp:    comp.started,
		CompletionID: comp.id,
		Operation:    operation,
		Model:        comp.owner.model,
		DurationMs:   durationMs,
		Status:       status,
		Spans:        comp.spans,
		ErrorKind:    kind,
		CacheHit:     cacheHit,
	}
	if err := comp.owner.trace.Export(ctx, record); err != nil {
		log.Printf("promptform: failed to export trace %s: %v", comp.id, err)
	}
}
