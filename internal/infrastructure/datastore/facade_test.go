package datastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedconfig "parceldesk/internal/shared/config"
	"parceldesk/internal/shared/errors"
	"parceldesk/internal/shared/logger"
)

func TestConnect_FixtureBackend(t *testing.T) {
	cfg := &sharedconfig.DatabaseConfig{
		Backend:             sharedconfig.BackendFixture,
		ProbeTimeoutSeconds: 1,
	}

	store, err := Connect(context.Background(), cfg, NewMemoryCache(0), fakeHasher{}, logger.NewLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, KindFixture, store.Kind())

	// fixture backend comes pre-seeded
	admin, err := store.GetAccountByEmail(context.Background(), "admin@parceldesk.local")
	require.NoError(t, err)
	assert.NotNil(t, admin)
}

func TestConnect_MySQLUnreachableFallsBackToFixture(t *testing.T) {
	cfg := &sharedconfig.DatabaseConfig{
		Backend:             sharedconfig.BackendMySQL,
		Host:                "127.0.0.1",
		Port:                1,
		Username:            "x",
		Password:            "x",
		Database:            "x",
		ProbeTimeoutSeconds: 1,
	}

	store, err := Connect(context.Background(), cfg, NewMemoryCache(0), fakeHasher{}, logger.NewLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, KindFixture, store.Kind())
}

func TestConnect_MySQLUnreachableRequiredFails(t *testing.T) {
	cfg := &sharedconfig.DatabaseConfig{
		Backend:             sharedconfig.BackendMySQL,
		Required:            true,
		Host:                "127.0.0.1",
		Port:                1,
		Username:            "x",
		Password:            "x",
		Database:            "x",
		ProbeTimeoutSeconds: 1,
	}

	_, err := Connect(context.Background(), cfg, NewMemoryCache(0), fakeHasher{}, logger.NewLogger())
	require.Error(t, err)
	assert.True(t, errors.IsConnectivityError(err))
}

func TestConnect_SQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := &sharedconfig.DatabaseConfig{
		Backend:             sharedconfig.BackendSQLite,
		SQLitePath:          filepath.Join(dir, "parceldesk.db"),
		ProbeTimeoutSeconds: 1,
	}

	store, err := Connect(context.Background(), cfg, NewMemoryCache(0), fakeHasher{}, logger.NewLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, KindSQLite, store.Kind())
	assert.NoError(t, store.HealthCheck(context.Background()))
}
