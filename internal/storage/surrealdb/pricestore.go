package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// PriceStore implements interfaces.HistoricalPriceCache on a SurrealDB table.
// The record id is the cache key, so UPSERT gives last-write-wins semantics.
type PriceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
	now    func() time.Time
}

// NewPriceStore wraps an open SurrealDB connection; the store owns and closes it.
func NewPriceStore(db *surrealdb.DB, logger *common.Logger) *PriceStore {
	return &PriceStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Open connects to SurrealDB and returns a ready PriceStore.
func Open(ctx context.Context, logger *common.Logger, config common.SurrealDBConfig) (*PriceStore, error) {
	db, err := Connect(ctx, logger, config)
	if err != nil {
		return nil, err
	}
	return NewPriceStore(db, logger), nil
}

func recordID(key models.CacheKey) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(priceTable, key.String())
}

func (s *PriceStore) selectRecord(ctx context.Context, key models.CacheKey) (*models.HistoricalPriceRecord, error) {
	rec, err := surrealdb.Select[models.HistoricalPriceRecord](ctx, s.db, recordID(key))
	if err != nil {
		return nil, fmt.Errorf("failed to select historical price %s: %w", key, err)
	}
	return rec, nil
}

func (s *PriceStore) Exists(ctx context.Context, key models.CacheKey) (bool, error) {
	rec, err := s.selectRecord(ctx, key)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

func (s *PriceStore) Get(ctx context.Context, key models.CacheKey) (*models.HistoricalPrice, error) {
	rec, err := s.selectRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, interfaces.ErrCacheMiss
	}
	return rec.HistoricalPrice()
}

func (s *PriceStore) Put(ctx context.Context, price *models.HistoricalPrice) error {
	rec := models.NewHistoricalPriceRecord(price, s.now())

	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{"rid": recordID(price.CacheKey()), "data": rec}

	if _, err := surrealdb.Query[[]models.HistoricalPriceRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save historical price %s: %w", rec.CacheKey, err)
	}
	return nil
}

func (s *PriceStore) Backend() string {
	return "surrealdb"
}

func (s *PriceStore) Close() error {
	s.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.HistoricalPriceCache = (*PriceStore)(nil)
