package storage

import (
	"os"
	"path/filepath"
	"testing"
)

// A corrupt cache file starts as an empty cache with a warning; it never
// crashes startup.
func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	store, err := NewJSONStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewJSONStore on corrupt file: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	if n, err := store.Len(); err != nil || n != 0 {
		t.Errorf("corrupt file should load as empty cache, got (%d, %v)", n, err)
	}

	// The store stays usable: writes repair the file.
	if err := store.Put("k", testEntry(0.5)); err != nil {
		t.Fatalf("Put after corrupt load: %v", err)
	}
}

func TestJSONStoreNilLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}
	store, err := NewJSONStore(path, nil)
	if err != nil {
		t.Fatalf("NewJSONStore with nil logger: %v", err)
	}
	_ = store.Close()
}

func TestJSONStoreEmptyPath(t *testing.T) {
	if _, err := NewJSONStore("", testLogger()); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := NewSQLiteStore("", testLogger()); err == nil {
		t.Error("expected error for empty sqlite path")
	}
}

// A database file that is not SQLite is removed and recreated empty.
func TestSQLiteStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	if err := os.WriteFile(path, []byte("this is not a database"), 0o600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	store, err := NewSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore on corrupt file: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	if n, err := store.Len(); err != nil || n != 0 {
		t.Errorf("corrupt database should be recreated empty, got (%d, %v)", n, err)
	}
}

func TestFactory(t *testing.T) {
	tmp := t.TempDir()

	tests := []struct {
		backend string
		path    string
		wantErr bool
	}{
		{"memory", "", false},
		{"", "", false},
		{"json", filepath.Join(tmp, "cache.json"), false},
		{"sqlite", filepath.Join(tmp, "cache.db"), false},
		{"redis", "", true},
	}
	for _, tt := range tests {
		t.Run("backend "+tt.backend, func(t *testing.T) {
			store, err := New(tt.backend, tt.path, testLogger())
			if tt.wantErr {
				if err == nil {
					t.Errorf("New(%q) expected error", tt.backend)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q): %v", tt.backend, err)
			}
			_ = store.Close()
		})
	}
}
