package storage

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// New creates a store for the configured backend. The path is ignored for
// the memory backend.
func New(backend, path string, logger *logrus.Logger) (Interface, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendJSON:
		return NewJSONStore(path, logger)
	case BackendSQLite:
		return NewSQLiteStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
