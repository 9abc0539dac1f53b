package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/iexgate/internal/common"
)

func TestNewHistoricalPriceCache_DefaultsToBadger(t *testing.T) {
	cfg := common.CacheConfig{Badger: common.BadgerConfig{Path: filepath.Join(t.TempDir(), "badger")}}

	cache, err := NewHistoricalPriceCache(context.Background(), common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer cache.Close()

	assert.Equal(t, BackendBadger, cache.Backend())
}

func TestNewHistoricalPriceCache_SQLite(t *testing.T) {
	cfg := common.CacheConfig{
		Backend: BackendSQLite,
		SQLite:  common.SQLiteConfig{Path: filepath.Join(t.TempDir(), "cache.db")},
	}

	cache, err := NewHistoricalPriceCache(context.Background(), common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer cache.Close()

	assert.Equal(t, BackendSQLite, cache.Backend())
}

func TestNewHistoricalPriceCache_BadgerInMemory(t *testing.T) {
	cfg := common.CacheConfig{Backend: BackendBadger, Badger: common.BadgerConfig{InMemory: true}}

	cache, err := NewHistoricalPriceCache(context.Background(), common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer cache.Close()

	assert.Equal(t, BackendBadger, cache.Backend())
}

func TestNewHistoricalPriceCache_UnknownBackend(t *testing.T) {
	_, err := NewHistoricalPriceCache(context.Background(), common.NewSilentLogger(), common.CacheConfig{Backend: "memcached"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cache backend")
}

func TestNewHistoricalPriceCache_OpenFailureWrapped(t *testing.T) {
	cfg := common.CacheConfig{Backend: BackendPostgres, Postgres: common.PostgresConfig{DSN: "://bad"}}

	_, err := NewHistoricalPriceCache(context.Background(), common.NewSilentLogger(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open postgres cache")
}
