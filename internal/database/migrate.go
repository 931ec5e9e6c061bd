package database

import (
	"errors"
	"fmt"

	"accounts-server/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // Драйвер для PostgreSQL
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// RunMigrations applies the embedded schema migrations against dbURL.
// Already-applied migrations are not an error.
func RunMigrations(dbURL string, logger *zap.Logger) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Error("Failed to create iofs source driver for migrations", zap.Error(err))
		return fmt.Errorf("failed to create iofs source driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dbURL)
	if err != nil {
		logger.Error("Failed to create migrate instance with iofs", zap.Error(err))
		return fmt.Errorf("failed to create migrate instance with iofs: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, verr := m.Version()
		if verr == nil {
			logger.Error("Migration error details", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("Database migrations applied")
	return nil
}
