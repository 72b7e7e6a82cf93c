package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"hostexposer/internal/server/storage/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// ApplyMigrations applies the embedded migrations for driver to db
func ApplyMigrations(db *sql.DB, driver string, logger *zap.Logger) error {
	var (
		dbDriver database.Driver
		err      error
	)

	switch driver {
	case DriverSQLite:
		dbDriver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case DriverMySQL:
		dbDriver, err = mysql.WithInstance(db, &mysql.Config{})
	case DriverPostgres:
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported storage driver: %s", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	sub, err := fs.Sub(migrations.FS, driver)
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", driver, err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", source, driver, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrator instance: %w", err)
	}

	logger.Info("Starting migrations...", zap.String("driver", driver))
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Migration failed", zap.Error(err))
		return fmt.Errorf("migration failed: %w", err)
	}

	v, dirty, verr := instance.Version()
	if verr == nil {
		logger.Info("Migrations completed successfully",
			zap.Uint("version", v),
			zap.Bool("dirty", dirty))
	}
	return nil
}
