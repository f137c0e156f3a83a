package datastore

import (
	"context"
	"time"

	sharedconfig "parceldesk/internal/shared/config"
	"parceldesk/internal/shared/errors"
	"parceldesk/internal/shared/logger"
)

// Connect selects a backend per the configured cascade, wraps it in the
// result cache and returns the store the rest of the application uses.
//
// Selection order for "auto": MySQL, then SQLite, then the in-memory
// fixture store. A forced backend skips the cascade; when it is unreachable
// the facade falls back to fixtures unless database.required is set, in
// which case startup fails. Every fallback is logged loudly since fixture
// data does not survive a restart.
func Connect(ctx context.Context, cfg *sharedconfig.DatabaseConfig, cache ResultCache, hasher CredentialHasher, log logger.Interface) (*CachedStore, error) {
	inner, err := selectBackend(ctx, cfg, hasher, log)
	if err != nil {
		return nil, err
	}

	log.Infow("data store ready", "backend", string(inner.Kind()))
	return NewCachedStore(inner, cache, log), nil
}

func selectBackend(ctx context.Context, cfg *sharedconfig.DatabaseConfig, hasher CredentialHasher, log logger.Interface) (Store, error) {
	switch cfg.Backend {
	case sharedconfig.BackendFixture:
		return newSeededFixture(ctx, hasher, log), nil

	case sharedconfig.BackendMySQL:
		store, err := tryMySQL(ctx, cfg, log)
		if err == nil {
			return store, nil
		}
		if cfg.Required {
			return nil, err
		}
		log.Warnw("mysql unreachable, falling back to fixture store; data will not persist",
			"error", err)
		return newSeededFixture(ctx, hasher, log), nil

	case sharedconfig.BackendSQLite:
		store, err := trySQLite(ctx, cfg, log)
		if err == nil {
			return store, nil
		}
		if cfg.Required {
			return nil, err
		}
		log.Warnw("sqlite unavailable, falling back to fixture store; data will not persist",
			"error", err)
		return newSeededFixture(ctx, hasher, log), nil

	default: // auto
		if store, err := tryMySQL(ctx, cfg, log); err == nil {
			return store, nil
		} else {
			log.Warnw("mysql unreachable, trying sqlite", "error", err)
		}

		if store, err := trySQLite(ctx, cfg, log); err == nil {
			return store, nil
		} else {
			if cfg.Required {
				return nil, err
			}
			log.Warnw("sqlite unavailable, falling back to fixture store; data will not persist",
				"error", err)
		}

		return newSeededFixture(ctx, hasher, log), nil
	}
}

func tryMySQL(ctx context.Context, cfg *sharedconfig.DatabaseConfig, log logger.Interface) (*MySQLStore, error) {
	db, err := OpenMySQL(cfg)
	if err != nil {
		return nil, errors.NewConnectivityError("mysql connection failed", err.Error())
	}

	store := NewMySQLStore(db, log)
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout(cfg))
	defer cancel()
	if err := store.HealthCheck(probeCtx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func trySQLite(ctx context.Context, cfg *sharedconfig.DatabaseConfig, log logger.Interface) (*SQLiteStore, error) {
	db, err := OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, errors.NewConnectivityError("sqlite open failed", err.Error())
	}

	store := NewSQLiteStore(db, log)
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout(cfg))
	defer cancel()
	if err := store.HealthCheck(probeCtx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newSeededFixture(ctx context.Context, hasher CredentialHasher, log logger.Interface) *FixtureStore {
	store := NewFixtureStore(log)
	if err := SeedDemoData(ctx, store, hasher, log); err != nil {
		log.Warnw("failed to seed fixture store", "error", err)
	}
	return store
}

func probeTimeout(cfg *sharedconfig.DatabaseConfig) time.Duration {
	if cfg.ProbeTimeoutSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(cfg.ProbeTimeoutSeconds) * time.Second
}
