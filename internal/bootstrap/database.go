package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
)

// SetupDatabase creates the pooled database connection.
func SetupDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	log.Info("Connected to database",
		logger.String("host", cfg.Database.Host),
		logger.String("database", cfg.Database.DBName),
	)
	return db, nil
}

// WithMigrator opens a dedicated connection, runs fn with a migrator on it
// and closes both.
func WithMigrator(ctx context.Context, cfg *config.Config, log logger.Logger, fn func(*database.Migrator) error) error {
	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}

	m, err := database.NewMigrator(db.DB, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	// Closing the migrator also closes db.
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			log.Warn("Failed to close migrator", logger.Error(closeErr))
		}
	}()

	return fn(m)
}

// RunMigrations applies all pending migrations.
func RunMigrations(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	return WithMigrator(ctx, cfg, log, func(m *database.Migrator) error {
		return m.Up()
	})
}
