// Package store caches raw completion results keyed by request digest
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/promptform/promptform/pkg/form"
	"github.com/promptform/promptform/pkg/schema"
)

// ErrNotFound is returned by Get when the key has no entry
var ErrNotFound = errors.New("cache entry not found")

// Cache stores raw completion text by request digest. Implementations
// must be safe for concurrent use.
type Cache interface {
	// Get returns the cached raw completion for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Put stores the raw completion for key, overwriting any entry.
	Put(ctx context.Context, key string, raw string) error

	// Close releases resources.
	Close() error
}

// Entry is one cached completion
type Entry struct {
	Key       string
	Raw       string
	CreatedAt time.Time
}

// Digest computes a stable cache key for a rendered request. Two
// requests with the same model, messages and response format always
// produce the same digest.
func Digest(model string, messages []form.Message, format *schema.ResponseFormat) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(model)
	_ = enc.Encode(messages)
	if format != nil {
		_ = enc.Encode(format)
	}
	return hex.EncodeToString(h.Sum(nil))
}
