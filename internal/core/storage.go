package core

import (
	"context"
	"fmt"

	"crisprcatalog/internal/infra/persistence/memory"
	"crisprcatalog/internal/infra/persistence/postgres"
	"crisprcatalog/internal/infra/persistence/sqlite"
	"crisprcatalog/pkg/domain"
)

// StorageDriver identifies a concrete relational store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions selects and configures a backend.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenStore opens the backend named by opts.Driver, defaulting to sqlite.
// The schema is applied before the store is returned.
func OpenStore(ctx context.Context, opts StorageOptions) (domain.Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(ctx, opts.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
