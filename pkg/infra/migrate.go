package infra

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	mgpostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	postgres_wrapper "github.com/joripage/order-manager/pkg/infra/postgres"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultMigrationSource is relative to the repository root.
const DefaultMigrationSource = "file://migration/sql"

const MigrationsTable = "oms_schema_migrations"

// IMigrateTool tool to migrate schema and data.
type IMigrateTool interface {
	// Wait for the database, then migrate it.
	ConnectAndMigrate(ctx context.Context, cfg *postgres_wrapper.PostgresConfig, source string) (*gorm.DB, error)

	// Migrate from current version to latest verion.
	Migrate(source string, connStr string) error
}

type migrateTool struct{}

var once sync.Once         // nolint
var mutex = &sync.Mutex{}  // nolint
var singleton IMigrateTool // nolint

// GetMigrateTool get singleton instance for migrate tool
func GetMigrateTool() IMigrateTool { // nolint
	once.Do(func() {
		singleton = &migrateTool{}
	})
	return singleton
}

// Migrate execute migration in serialize. A dirty version left by a failed
// run is forced back one step and retried.
func (mt *migrateTool) Migrate(source string, connStr string) error {
	mutex.Lock()
	defer mutex.Unlock()

	sugar := zap.S().With("source", source)
	sugar.Info("migrating...")

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return err
	}
	driver, err := mgpostgres.WithInstance(db, &mgpostgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		db.Close()
		return err
	}
	mg, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		driver.Close()
		return err
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}

	if dirty {
		sugar.Warnf("dirty schema version %d, forcing %d", version, int(version)-1)
		if err := mg.Force(int(version) - 1); err != nil {
			return err
		}
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	sugar.Info("migration done")
	return nil
}

func (mt *migrateTool) ConnectAndMigrate(ctx context.Context, cfg *postgres_wrapper.PostgresConfig, source string) (*gorm.DB, error) {
	db, err := postgres_wrapper.InitPostgresWithBackoff(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := mt.Migrate(source, cfg.MigrationConnURL); err != nil {
		return nil, err
	}
	return db, nil
}
