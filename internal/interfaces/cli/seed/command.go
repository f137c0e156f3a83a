// Package seed hosts the cobra command that loads demo data into the
// configured backend.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"parceldesk/internal/infrastructure/auth"
	"parceldesk/internal/infrastructure/config"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/shared/logger"
)

var configPath string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo data",
		Long:  `Create the demo accounts, tickets and broadcast logs in the configured backend. Fails if demo data already exists.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

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

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Seeding the fixture backend is pointless: the facade already seeds it
	// and the data is gone when the process exits.
	if cfg.Database.Backend == "fixture" {
		return fmt.Errorf("the fixture backend is seeded automatically on startup")
	}

	cache := datastore.NewMemoryCache(time.Minute)
	store, err := datastore.Connect(ctx, &cfg.Database, cache, hasher, log)
	if err != nil {
		return fmt.Errorf("failed to connect data store: %w", err)
	}
	defer store.Close()

	if store.Kind() == datastore.KindFixture {
		return fmt.Errorf("%s unreachable; refusing to seed the fallback fixture store", cfg.Database.Backend)
	}

	if err := datastore.SeedDemoData(ctx, store, hasher, log); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	log.Infow("demo data loaded", "backend", string(store.Kind()))
	return nil
}
