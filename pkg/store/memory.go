package store

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache. TTL of zero means entries never
// expire; expired entries are dropped lazily on Get.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Entry),
		ttl:     ttl,
	}
}

// Get returns the cached completion for key
func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if m.ttl > 0 && time.Since(entry.CreatedAt) > m.ttl {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.Raw, nil
}

// Put stores the completion for key
func (m *MemoryCache) Put(ctx context.Context, key string, raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry{Key: key, Raw: raw, CreatedAt: time.Now()}
	return nil
}

// Close is a no-op for the in-memory cache
func (m *MemoryCache) Close() error { return nil }
