// Package cache is the durable key/text store behind generated content.
// Entries never expire; concurrent writers to one key resolve last-writer-wins.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrCorrupt marks a persisted cache that could not be decoded.
var ErrCorrupt = errors.New("cache: corrupt storage")

// Store maps keys to previously generated text.
type Store interface {
	// Get returns the cached text for key. Storage failures read as a miss.
	Get(ctx context.Context, key string) (string, bool)
	// Set records text under key and persists it.
	Set(ctx context.Context, key, value string) error
	// Len reports the number of entries.
	Len(ctx context.Context) int
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open constructs the store for backend. A missing or corrupt file degrades
// to an empty cache; only an unusable SQLite database is an error.
func Open(backend, path string, log *slog.Logger) (Store, error) {
	if log == nil {
		log = slog.Default()
	}
	switch backend {
	case "", BackendFile:
		return NewFileStore(path, log), nil
	case BackendSQLite:
		return NewSQLiteStore(path, log)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
