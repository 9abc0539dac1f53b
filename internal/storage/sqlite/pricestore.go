// Package sqlite provides the SQLite-backed historical price cache.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
)

// PriceStore implements interfaces.HistoricalPriceCache on a single SQLite table.
// Writes are serialized; WAL mode lets reads proceed alongside them.
type PriceStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *common.Logger
	now    func() time.Time
}

// Open opens (or creates) the database at path and runs migrations.
func Open(logger *common.Logger, path string) (*PriceStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sqlite directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &PriceStore{db: db, logger: logger, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", path).Msg("SQLite price cache opened")
	return s, nil
}

// dsn applies the pragmas on every pooled connection, not just the first.
func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(" + busyTimeoutMillis + ")&_pragma=journal_mode(WAL)"
}

const busyTimeoutMillis = "5000"

func (s *PriceStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS historical_price (
			cache_key TEXT PRIMARY KEY,
			symbol    TEXT NOT NULL,
			date      TEXT NOT NULL,
			open      TEXT NOT NULL,
			close     TEXT NOT NULL,
			high      TEXT NOT NULL,
			low       TEXT NOT NULL,
			volume    INTEGER NOT NULL,
			cached_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_historical_price_symbol ON historical_price(symbol, date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PriceStore) Exists(ctx context.Context, key models.CacheKey) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM historical_price WHERE cache_key = ?`, key.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query historical_price %s: %w", key, err)
	}
	return true, nil
}

func (s *PriceStore) Get(ctx context.Context, key models.CacheKey) (*models.HistoricalPrice, error) {
	var rec models.HistoricalPriceRecord
	var cachedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT cache_key, symbol, date, open, close, high, low, volume, cached_at
		 FROM historical_price WHERE cache_key = ?`, key.String()).
		Scan(&rec.CacheKey, &rec.Symbol, &rec.Date, &rec.Open, &rec.Close, &rec.High, &rec.Low, &rec.Volume, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("query historical_price %s: %w", key, err)
	}
	rec.CachedAt = time.UnixMilli(cachedAt).UTC()
	return rec.HistoricalPrice()
}

func (s *PriceStore) Put(ctx context.Context, price *models.HistoricalPrice) error {
	rec := models.NewHistoricalPriceRecord(price, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO historical_price (cache_key, symbol, date, open, close, high, low, volume, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			symbol = excluded.symbol,
			date = excluded.date,
			open = excluded.open,
			close = excluded.close,
			high = excluded.high,
			low = excluded.low,
			volume = excluded.volume,
			cached_at = excluded.cached_at`,
		rec.CacheKey, rec.Symbol, rec.Date, rec.Open, rec.Close, rec.High, rec.Low, rec.Volume, rec.CachedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert historical_price %s: %w", rec.CacheKey, err)
	}
	return nil
}

func (s *PriceStore) Backend() string {
	return "sqlite"
}

func (s *PriceStore) Close() error {
	return s.db.Close()
}

var _ interfaces.HistoricalPriceCache = (*PriceStore)(nil)
