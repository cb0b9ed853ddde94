package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/wheelhouse/internal/models"
)

// JSONStore persists cache entries to a single JSON file. Writes go to a
// temp file followed by an atomic rename so a crash mid-write never leaves a
// truncated file behind.
type JSONStore struct {
	mu       sync.RWMutex
	filepath string
	logger   *logrus.Logger
	data     *jsonData
	closed   bool
}

type jsonData struct {
	Entries     map[string]models.CacheEntry `json:"entries"`
	LastUpdated time.Time                    `json:"last_updated"`
}

// NewJSONStore opens or creates a JSON-file store. An unreadable or corrupt
// file is treated as an empty cache with a logged warning; only a filesystem
// level failure (e.g. the directory cannot be created) is surfaced.
func NewJSONStore(path string, logger *logrus.Logger) (*JSONStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: json store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	s := &JSONStore{
		filepath: path,
		logger:   logger,
		data:     &jsonData{Entries: make(map[string]models.CacheEntry)},
	}

	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from the user's config
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		s.warnf("cache file %s unreadable, starting with empty cache: %v", path, err)
		return s, nil
	}
	var loaded jsonData
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.warnf("cache file %s corrupt, starting with empty cache: %v", path, err)
		return s, nil
	}
	if loaded.Entries != nil {
		s.data = &loaded
	}
	return s, nil
}

// Get returns the entry for key.
func (s *JSONStore) Get(key string) (*models.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrStoreClosed
	}
	entry, ok := s.data.Entries[key]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put inserts or replaces the entry for key and persists the file.
func (s *JSONStore) Put(key string, entry models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.data.Entries[key] = entry
	return s.save()
}

// Delete removes the entry for key and persists the file.
func (s *JSONStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.data.Entries[key]; !ok {
		return nil
	}
	delete(s.data.Entries, key)
	return s.save()
}

// Len returns the number of entries.
func (s *JSONStore) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	return len(s.data.Entries), nil
}

// Close marks the store closed.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// save writes the data file. Callers must hold the write lock.
func (s *JSONStore) save() error {
	s.data.LastUpdated = time.Now().UTC()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache data: %w", err)
	}
	tmp := s.filepath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := os.Rename(tmp, s.filepath); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

func (s *JSONStore) warnf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warnf(format, args...)
	}
}
