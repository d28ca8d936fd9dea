// Package sqlite provides the SQLite-backed catalog store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"crisprcatalog/internal/infra/persistence/sqlbundle"
	"crisprcatalog/internal/infra/persistence/sqlstore"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	driverName  = "sqlite"
	defaultPath = "crisprcatalog.db"
	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"
)

// Dialect describes SQLite for the shared SQL store. Its LIKE is
// case-insensitive for ASCII only.
var Dialect = sqlstore.Dialect{
	Name:                "sqlite",
	DDL:                 sqlbundle.SQLite,
	Placeholder:         sqlstore.QuestionPlaceholder,
	CaseInsensitiveLike: "LIKE",
	EncodeTime:          sqlstore.TextTime,
}

// Store is the SQL store bound to a SQLite file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating if needed) the SQLite database at path and applies
// the catalog schema. An empty path falls back to ./crisprcatalog.db.
func NewStore(ctx context.Context, path string, opts ...sqlstore.Option) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps pragmas and :memory: databases consistent and
	// avoids SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	inner, err := sqlstore.Open(ctx, db, Dialect, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: inner, path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
