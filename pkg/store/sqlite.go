package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteCache is a Cache backed by a SQLite database. The dbPath can be
// a file path or ":memory:". The schema is created on open.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteCache opens (or creates) the cache database at dbPath. TTL
// of zero means entries never expire.
func NewSQLiteCache(dbPath string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open(sqliteDriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	cache := &SQLiteCache{db: db, ttl: ttl}
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return cache, nil
}

func (s *SQLiteCache) initSchema() error {
	// created_at is unix milliseconds so TTL comparisons work the same
	// under both SQLite drivers.
	schema := `
	CREATE TABLE IF NOT EXISTS completions (
		key TEXT PRIMARY KEY,
		raw TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the cached completion for key
func (s *SQLiteCache) Get(ctx context.Context, key string) (string, error) {
	var raw string
	var createdAtMs int64
	err := s.db.QueryRowContext(ctx,
		"SELECT raw, created_at FROM completions WHERE key = ?", key,
	).Scan(&raw, &createdAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query cache: %w", err)
	}

	if s.ttl > 0 && time.Since(time.UnixMilli(createdAtMs)) > s.ttl {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM completions WHERE key = ?", key); err != nil {
			return "", fmt.Errorf("failed to evict expired entry: %w", err)
		}
		return "", ErrNotFound
	}
	return raw, nil
}

// Put stores the completion for key, replacing any existing entry
func (s *SQLiteCache) Put(ctx context.Context, key string, raw string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO completions (key, raw, created_at) VALUES (?, ?, ?)",
		key, raw, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Prune removes every expired entry and returns the number removed.
// No-op when the cache has no TTL.
func (s *SQLiteCache) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.ttl).UnixMilli()
	result, err := s.db.ExecContext(ctx, "DELETE FROM completions WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the underlying database
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}
