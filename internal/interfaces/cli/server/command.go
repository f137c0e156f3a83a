// Package server hosts the cobra command that runs the dashboard API.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"parceldesk/internal/infrastructure/auth"
	"parceldesk/internal/infrastructure/config"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/infrastructure/migration"
	"parceldesk/internal/infrastructure/realtime"
	"parceldesk/internal/infrastructure/services"
	httpRouter "parceldesk/internal/interfaces/http"
	sharedconfig "parceldesk/internal/shared/config"
	"parceldesk/internal/shared/logger"
)

var (
	configPath  string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the dashboard API server",
		Long:  `Start the HTTP and websocket server backed by the configured data store.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Sync schema from the models on startup (development only)")

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

	log.Infow("starting server",
		"backend", cfg.Database.Backend,
		"cache", cfg.Cache.Backend,
		"auto_migrate", autoMigrate)

	gin.DefaultWriter = io.Discard

	cache, err := buildCache(&cfg.Cache, &cfg.Redis, log)
	if err != nil {
		return err
	}

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewJWTService(cfg.Auth.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := datastore.Connect(ctx, &cfg.Database, cache, hasher, log)
	if err != nil {
		return fmt.Errorf("failed to connect data store: %w", err)
	}
	defer store.Close()

	if err := runMigrations(store, log); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	hub := realtime.NewHub(cfg.Realtime, store, tokens, log)
	numbers := services.NewTicketNumberGenerator(store)

	engine := httpRouter.NewRouter(httpRouter.RouterDeps{
		Store:     store,
		Hub:       hub,
		Tokens:    tokens,
		Hasher:    hasher,
		Numbers:   numbers,
		ServerCfg: cfg.Server,
		Log:       log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server listening", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func buildCache(cfg *sharedconfig.CacheConfig, redisCfg *sharedconfig.RedisConfig, log logger.Interface) (datastore.ResultCache, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second

	if cfg.Backend == sharedconfig.CacheBackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.GetAddr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		log.Infow("result cache ready", "backend", "redis", "addr", redisCfg.GetAddr())
		return datastore.NewRedisCache(client, cfg.KeyPrefix, ttl, log), nil
	}

	log.Infow("result cache ready", "backend", "memory")
	return datastore.NewMemoryCache(ttl), nil
}

// runMigrations applies schema migrations when a SQL backend is active. The
// fixture store has no schema to manage.
func runMigrations(store *datastore.CachedStore, log logger.Interface) error {
	opts := migration.Options{Dir: "migrations", AutoMigrate: autoMigrate}

	switch inner := store.Unwrap().(type) {
	case *datastore.MySQLStore:
		opts.Dialect = "mysql"
		return migration.ForOptions(opts, log).Run(inner.DB())
	case *datastore.SQLiteStore:
		opts.Dialect = "sqlite"
		return migration.ForOptions(opts, log).Run(inner.DB())
	default:
		log.Debugw("no migrations for backend", "backend", string(store.Kind()))
		return nil
	}
}
