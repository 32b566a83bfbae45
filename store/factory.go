package store

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"json"   - one JSON file at path (default)
//	"sqlite" - SQLite database at path
//	"memory" - In-memory (ephemeral, for testing)
func New(backend, path string) (Store, error) {
	switch backend {
	case "json", "":
		return NewJSONFileStore(path)
	case "sqlite":
		return NewSqliteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, memory)", backend)
	}
}
