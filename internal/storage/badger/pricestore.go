package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PriceEntry is a historical price record stored as JSON under its cache key.
type PriceEntry struct {
	Key   string `badgerhold:"key"`
	Value string
}

// PriceStore implements interfaces.HistoricalPriceCache on BadgerHold.
type PriceStore struct {
	store  *Store
	logger *common.Logger
	now    func() time.Time
}

// NewPriceStore creates a price cache over an open Store. Closing the PriceStore closes the Store.
func NewPriceStore(store *Store, logger *common.Logger) *PriceStore {
	return &PriceStore{store: store, logger: logger, now: time.Now}
}

// Open opens a Store from config and wraps it in a PriceStore.
func Open(logger *common.Logger, config common.BadgerConfig) (*PriceStore, error) {
	store, err := NewStore(logger, config)
	if err != nil {
		return nil, err
	}
	return NewPriceStore(store, logger), nil
}

func (s *PriceStore) Exists(_ context.Context, key models.CacheKey) (bool, error) {
	var entry PriceEntry
	err := s.store.db.Get(key.String(), &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get key '%s': %w", key, err)
	}
	return true, nil
}

func (s *PriceStore) Get(_ context.Context, key models.CacheKey) (*models.HistoricalPrice, error) {
	var entry PriceEntry
	err := s.store.db.Get(key.String(), &entry)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get key '%s': %w", key, err)
	}

	var rec models.HistoricalPriceRecord
	if err := json.Unmarshal([]byte(entry.Value), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode key '%s': %w", key, err)
	}
	return rec.HistoricalPrice()
}

func (s *PriceStore) Put(_ context.Context, price *models.HistoricalPrice) error {
	rec := models.NewHistoricalPriceRecord(price, s.now())
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode key '%s': %w", rec.CacheKey, err)
	}

	entry := PriceEntry{Key: rec.CacheKey, Value: string(data)}
	if err := s.store.db.Upsert(rec.CacheKey, &entry); err != nil {
		return fmt.Errorf("failed to set key '%s': %w", rec.CacheKey, err)
	}
	return nil
}

// Count returns the number of cached prices
func (s *PriceStore) Count() (int, error) {
	n, err := s.store.db.Count(&PriceEntry{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return int(n), nil
}

func (s *PriceStore) Backend() string {
	return "badger"
}

func (s *PriceStore) Close() error {
	return s.store.Close()
}

var _ interfaces.HistoricalPriceCache = (*PriceStore)(nil)
