package storage

import (
	"sync"

	"github.com/eddiefleurent/wheelhouse/internal/models"
)

// MemoryStore is a non-persistent Interface implementation for tests and for
// runs that do not configure a storage backend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.CacheEntry)}
}

// Get returns the entry for key.
func (m *MemoryStore) Get(key string) (*models.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrStoreClosed
	}
	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put inserts or replaces the entry for key.
func (m *MemoryStore) Put(key string, entry models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.entries[key] = entry
	return nil
}

// Delete removes the entry for key.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.entries, key)
	return nil
}

// Len returns the number of entries.
func (m *MemoryStore) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrStoreClosed
	}
	return len(m.entries), nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
