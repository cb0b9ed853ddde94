package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/eddiefleurent/wheelhouse/internal/models"
)

// SQLiteStore persists cache entries in a SQLite database. WAL mode keeps
// concurrent readers from blocking the writer.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS greeks_cache (
	key        TEXT PRIMARY KEY,
	entry      TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);
`

// NewSQLiteStore opens or creates a SQLite-backed store. An unreadable
// database file is replaced with an empty one after a logged warning; only a
// failure to open the replacement is surfaced.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: sqlite store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	db, err := open(path)
	if err != nil {
		if logger != nil {
			logger.Warnf("cache database %s unusable, recreating empty: %v", path, err)
		}
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("removing corrupt cache database: %w", rmErr)
		}
		db, err = open(path)
		if err != nil {
			return nil, fmt.Errorf("opening cache database: %w", err)
		}
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Get returns the entry for key. A row that no longer unmarshals is dropped
// and reported as a miss rather than an error.
func (s *SQLiteStore) Get(key string) (*models.CacheEntry, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT entry FROM greeks_cache WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %q: %w", key, err)
	}
	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		if s.logger != nil {
			s.logger.Warnf("cache entry %q corrupt, dropping: %v", key, err)
		}
		_ = s.Delete(key)
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put inserts or replaces the entry for key.
func (s *SQLiteStore) Put(key string, entry models.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry %q: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO greeks_cache (key, entry, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET entry = excluded.entry, fetched_at = excluded.fetched_at`,
		key, string(raw), entry.FetchedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM greeks_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting cache entry %q: %w", key, err)
	}
	return nil
}

// Len returns the number of entries.
func (s *SQLiteStore) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM greeks_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
