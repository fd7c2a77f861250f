// Package llm provides a resilient client for OpenAI-compatible chat
// completion endpoints
package llm

import (
	"context"
	"fmt"

	"github.com/promptform/promptform/pkg/form"
	"github.com/promptform/promptform/pkg/response"
	"github.com/promptform/promptform/pkg/schema"
)

// Request is one rendered completion request
type Request struct {
	Messages       []form.Message
	ResponseFormat *schema.ResponseFormat
}

// CompletionClient is the transport interface consumed by the
// orchestration layer. Complete returns the full completion text;
// Stream returns an in-order fragment reader.
type CompletionClient interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (response.FragmentReader, error)
}

// APIError reports a terminal (non-retried or retries-exhausted) HTTP
// failure from the completion endpoint
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// MaxRetriesError reports that every attempt failed. Last carries the
// final attempt's error.
type MaxRetriesError struct {
	Attempts int
	Last     error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("completion failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *MaxRetriesError) Unwrap() error { return e.Last }

// retryableError marks an error worth retrying (transport failures,
// 429 and 5xx responses)
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }

func (e *retryableError) Unwrap() error { return e.err }

func shouldRetry(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}
