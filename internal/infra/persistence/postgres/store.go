// Package postgres provides the Postgres-backed catalog store. Rows live in
// the pathogens and target_sites tables; the schema is applied on startup.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"crisprcatalog/internal/infra/persistence/sqlbundle"
	"crisprcatalog/internal/infra/persistence/sqlstore"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/crisprcatalog?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Dialect describes Postgres for the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:                "postgres",
	DDL:                 sqlbundle.Postgres,
	Placeholder:         sqlstore.DollarPlaceholder,
	CaseInsensitiveLike: "ILIKE",
	EncodeTime:          sqlstore.NativeTime,
}

// Store is the SQL store bound to a Postgres database.
type Store struct {
	*sqlstore.Store
}

// NewStore connects using dsn (falls back to a local default), verifies the
// connection and applies the catalog DDL.
func NewStore(ctx context.Context, dsn string, opts ...sqlstore.Option) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	inner, err := sqlstore.Open(ctx, db, Dialect, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: inner}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
