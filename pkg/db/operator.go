package db

import (
	"context"

	"github.com/genobase/pairmeta/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Operator defines the interface for basic database management operations.
// It provides connection lifecycle management and exposes the pgxpool.Pool
// for high-level components (SchemaManager, Aggregator, Ranker) to execute
// their specialized SQL operations internally.
//
// The interface stays minimal on purpose: schema creation and migration go
// through GORM AutoMigrate in the SchemaManager, and everything touching
// the fact tables runs its own transactions against Pool().
type Operator interface {
	// Connect establishes a connection pool to the database.
	Connect(context.Context, *config.DatabaseConfig) error

	// Close closes the database connection pool.
	Close() error

	// Pool returns the underlying pgxpool.Pool for high-level components.
	// Components use this for transactions, advisory locks, and bulk
	// inserts (CopyFrom).
	Pool() *pgxpool.Pool

	// TableExists checks if a table exists in the database.
	TableExists(ctx context.Context, tableName string) (bool, error)

	// HasTables checks if the database has any tables in the public schema.
	// Used to determine if schema creation should prompt for confirmation.
	HasTables(ctx context.Context) (bool, error)

	// DropAllTables drops all tables in the public schema.
	// Used during schema initialization when overwriting existing data.
	DropAllTables(ctx context.Context) error
}
