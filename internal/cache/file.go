package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a JSON object of key/text pairs, read once at construction and
// rewritten in full after every Set.
type FileStore struct {
	path string
	log  *slog.Logger

	mu      sync.RWMutex
	entries map[string]string
}

// NewFileStore loads path. Missing files start empty; corrupt files are
// logged and start empty, and are overwritten on the next Set.
func NewFileStore(path string, log *slog.Logger) *FileStore {
	if log == nil {
		log = slog.Default()
	}
	s := &FileStore{path: path, log: log, entries: map[string]string{}}
	entries, err := load(path)
	switch {
	case err == nil:
		s.entries = entries
		log.Info("cache loaded", "path", path, "entries", len(entries))
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("cache file not found, starting empty", "path", path)
	default:
		log.Warn("cache unreadable, starting empty", "path", path, "error", err)
	}
	return s
}

// load accepts either an object {key: text} or an array of [key, text] pairs.
func load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj == nil {
			obj = map[string]string{}
		}
		return obj, nil
	}
	var pairs [][]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	obj = make(map[string]string, len(pairs))
	for _, p := range pairs {
		if len(p) == 2 {
			obj[p[0]] = p[1]
		}
	}
	return obj, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Set updates the entry and flushes the whole file. The in-memory entry is
// kept even when the flush fails.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	if err := s.flushLocked(); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	return nil
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Len(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *FileStore) Close() error { return nil }
