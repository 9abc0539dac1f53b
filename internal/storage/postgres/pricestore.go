// Package postgres provides the PostgreSQL-backed historical price cache.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
)

// PriceStore implements interfaces.HistoricalPriceCache on a PostgreSQL table.
type PriceStore struct {
	db     *pgxpool.Pool
	logger *common.Logger
	now    func() time.Time
}

// Open creates a connection pool from config.DSN, pings it and ensures the table exists.
func Open(ctx context.Context, logger *common.Logger, config common.PostgresConfig) (*PriceStore, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PriceStore{db: pool, logger: logger, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Str("database", poolConfig.ConnConfig.Database).
		Msg("PostgreSQL connection established")

	return s, nil
}

func (s *PriceStore) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS historical_price (
			cache_key TEXT PRIMARY KEY,
			symbol    TEXT NOT NULL,
			date      DATE NOT NULL,
			open      NUMERIC NOT NULL,
			close     NUMERIC NOT NULL,
			high      NUMERIC NOT NULL,
			low       NUMERIC NOT NULL,
			volume    BIGINT NOT NULL,
			cached_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create historical_price table: %w", err)
	}
	return nil
}

func (s *PriceStore) Exists(ctx context.Context, key models.CacheKey) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM historical_price WHERE cache_key = $1)`
	if err := s.db.QueryRow(ctx, query, key.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("query historical price %s: %w", key, err)
	}
	return exists, nil
}

func (s *PriceStore) Get(ctx context.Context, key models.CacheKey) (*models.HistoricalPrice, error) {
	query := `
		SELECT
			cache_key,
			symbol,
			date::text,
			open::text,
			close::text,
			high::text,
			low::text,
			volume,
			cached_at
		FROM historical_price
		WHERE cache_key = $1
	`

	var rec models.HistoricalPriceRecord
	err := s.db.QueryRow(ctx, query, key.String()).Scan(
		&rec.CacheKey,
		&rec.Symbol,
		&rec.Date,
		&rec.Open,
		&rec.Close,
		&rec.High,
		&rec.Low,
		&rec.Volume,
		&rec.CachedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, interfaces.ErrCacheMiss
		}
		return nil, fmt.Errorf("query historical price %s: %w", key, err)
	}

	return rec.HistoricalPrice()
}

func (s *PriceStore) Put(ctx context.Context, price *models.HistoricalPrice) error {
	rec := models.NewHistoricalPriceRecord(price, s.now())

	query := `
		INSERT INTO historical_price (cache_key, symbol, date, open, close, high, low, volume, cached_at)
		VALUES ($1, $2, $3::text::date, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7::text::numeric, $8, $9)
		ON CONFLICT (cache_key) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			date = EXCLUDED.date,
			open = EXCLUDED.open,
			close = EXCLUDED.close,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			volume = EXCLUDED.volume,
			cached_at = EXCLUDED.cached_at
	`

	_, err := s.db.Exec(ctx, query,
		rec.CacheKey, rec.Symbol, rec.Date,
		rec.Open, rec.Close, rec.High, rec.Low,
		rec.Volume, rec.CachedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert historical price %s: %w", rec.CacheKey, err)
	}
	return nil
}

func (s *PriceStore) Backend() string {
	return "postgres"
}

func (s *PriceStore) Close() error {
	s.db.Close()
	return nil
}

var _ interfaces.HistoricalPriceCache = (*PriceStore)(nil)
