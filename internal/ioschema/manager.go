// Package ioschema implements the SchemaManager interface for
// database schema management. This is an impure I/O package
// that wraps GORM AutoMigrate functionality.
package ioschema

import (
	"context"

	"github.com/genobase/pairmeta/pkg/db"
	"github.com/genobase/pairmeta/pkg/pairmeta"
	"github.com/genobase/pairmeta/pkg/schema"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// manager implements the pairmeta.SchemaManager interface
// using GORM AutoMigrate.
type manager struct {
	operator db.Operator
}

// NewManager creates a new SchemaManager.
func NewManager(op db.Operator) pairmeta.SchemaManager {
	return &manager{operator: op}
}

// Create creates the initial database schema using GORM AutoMigrate.
func (m *manager) Create(ctx context.Context) error {
	gormDB, err := m.gormDB()
	if err != nil {
		return err
	}

	if err := schema.Migrate(gormDB); err != nil {
		return CreateSchemaError(err)
	}

	return nil
}

// Migrate updates the database schema to the latest version
// using GORM AutoMigrate.
func (m *manager) Migrate(ctx context.Context) error {
	gormDB, err := m.gormDB()
	if err != nil {
		return err
	}

	if err := schema.Migrate(gormDB); err != nil {
		return MigrateSchemaError(err)
	}

	return nil
}

// SeedDiseases inserts the built-in illness vocabulary. Existing keys
// are left untouched, so seeding is idempotent.
func (m *manager) SeedDiseases(ctx context.Context) error {
	pool := m.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}

	q := `INSERT INTO diseases (key, name) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING`

	for _, d := range seedDiseases {
		if _, err := pool.Exec(ctx, q, d.Key, d.Name); err != nil {
			return SeedDiseasesError(d.Key, err)
		}
	}

	return nil
}

// seedDiseases is the normalized cohort vocabulary of the upstream
// expression studies.
var seedDiseases = []schema.Disease{
	{Key: "sepsis", Name: "Sepsis"},
	{Key: "septic_shock", Name: "Septic shock"},
	{Key: "no_sepsis", Name: "No sepsis"},
	{Key: "control", Name: "Healthy control"},
	{Key: "unknown", Name: "Unknown"},
}

// gormDB opens a GORM session over the shared pgx pool.
func (m *manager) gormDB() (*gorm.DB, error) {
	pool := m.operator.Pool()
	if pool == nil {
		return nil, NotConnectedError()
	}

	sqlDB := stdlib.OpenDBFromPool(pool)

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{},
	)
	if err != nil {
		return nil, GORMConnectionError(err)
	}

	return gormDB, nil
}
