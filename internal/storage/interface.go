// Package storage persists Greeks cache entries across process restarts
// behind a pluggable key-value interface, so the caching policy (TTL,
// staleness) is testable independently of the storage medium.
package storage

import (
	"errors"

	"github.com/eddiefleurent/wheelhouse/internal/models"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("storage: store is closed")

// Interface defines the contract for cache-entry persistence.
//
// Implementations must be safe for concurrent use - callers can assume all
// methods are goroutine-safe. The provided implementations serialize access
// with sync.RWMutex (memory, JSON file) or rely on the database driver
// (SQLite).
type Interface interface {
	// Get returns the entry for key, with ok=false on a miss.
	Get(key string) (entry *models.CacheEntry, ok bool, err error)
	// Put inserts or replaces the entry for key.
	Put(key string, entry models.CacheEntry) error
	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(key string) error
	// Len returns the number of persisted entries.
	Len() (int, error)
	// Close releases the store. Further calls return ErrStoreClosed.
	Close() error
}

// Compile-time interface compliance checks.
var (
	_ Interface = (*MemoryStore)(nil)
	_ Interface = (*JSONStore)(nil)
	_ Interface = (*SQLiteStore)(nil)
)
