// Package storage selects and opens the historical price cache backend.
package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/storage/badger"
	"github.com/bobmcallan/iexgate/internal/storage/postgres"
	"github.com/bobmcallan/iexgate/internal/storage/redis"
	"github.com/bobmcallan/iexgate/internal/storage/sqlite"
	"github.com/bobmcallan/iexgate/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendSurrealDB = "surrealdb"
	BackendBadger    = "badger"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendPostgres  = "postgres"
)

// NewHistoricalPriceCache opens the cache backend named in config.Backend.
// An empty backend defaults to badger.
func NewHistoricalPriceCache(ctx context.Context, logger *common.Logger, config common.CacheConfig) (interfaces.HistoricalPriceCache, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendBadger
	}

	var (
		cache interfaces.HistoricalPriceCache
		err   error
	)

	switch backend {
	case BackendSurrealDB:
		cache, err = surrealdb.Open(ctx, logger, config.SurrealDB)
	case BackendBadger:
		cache, err = badger.Open(logger, config.Badger)
	case BackendSQLite:
		cache, err = sqlite.Open(logger, config.SQLite.Path)
	case BackendRedis:
		cache, err = redis.Open(ctx, logger, config.Redis)
	case BackendPostgres:
		cache, err = postgres.Open(ctx, logger, config.Postgres)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: surrealdb, badger, sqlite, redis, postgres)", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", backend, err)
	}

	logger.Info().Str("backend", cache.Backend()).Msg("Historical price cache ready")
	return cache, nil
}
