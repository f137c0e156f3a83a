// Package migrate hosts the cobra command that applies schema migrations
// outside the server process.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"parceldesk/internal/infrastructure/config"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/infrastructure/migration"
	"parceldesk/internal/shared/logger"
)

var (
	configPath  string
	backend     string
	dir         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		Long:  `Apply versioned SQL migrations to the configured MySQL or SQLite backend.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "Backend to migrate (mysql or sqlite, default from config)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "migrations", "Root directory of the migration scripts")
	cmd.Flags().BoolVar(&autoMigrate, "auto", false, "Sync schema from the models instead of running scripts")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, cfg.Debug); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	dialect := backend
	if dialect == "" {
		dialect = cfg.Database.Backend
	}

	var db *gorm.DB
	switch dialect {
	case "mysql":
		db, err = datastore.OpenMySQL(&cfg.Database)
	case "sqlite":
		db, err = datastore.OpenSQLite(cfg.Database.SQLitePath)
	default:
		return fmt.Errorf("backend %q has no schema to migrate; use mysql or sqlite", dialect)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dialect, err)
	}
	defer func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}()

	strategy := migration.ForOptions(migration.Options{
		Dialect:     dialect,
		Dir:         dir,
		AutoMigrate: autoMigrate,
	}, log)

	log.Infow("running migrations", "backend", dialect, "strategy", strategy.Name())
	if err := strategy.Run(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Infow("migrations completed")
	return nil
}
