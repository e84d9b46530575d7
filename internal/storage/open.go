package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Backend names accepted by Open
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open connects to the configured backend. For SQLite target is a file path
// (its directory is created) or ":memory:"; for PostgreSQL it is a DSN and
// maxConns sizes the pool.
func Open(ctx context.Context, backend, target string, maxConns int) (Storage, error) {
	switch backend {
	case BackendSQLite, "":
		if target != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return NewSQLiteStorage(target)
	case BackendPostgres:
		return NewPostgresStorage(ctx, target, maxConns)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
