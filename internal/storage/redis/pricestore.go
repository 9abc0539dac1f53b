// Package redis provides the Redis-backed historical price cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
)

// PriceStore implements interfaces.HistoricalPriceCache with one Redis string per cache key.
// Entries are written without expiry.
type PriceStore struct {
	client *redis.Client
	prefix string
	logger *common.Logger
	now    func() time.Time
}

// NewPriceStore wraps an existing client. Closing the PriceStore closes the client.
func NewPriceStore(client *redis.Client, prefix string, logger *common.Logger) *PriceStore {
	return &PriceStore{client: client, prefix: prefix, logger: logger, now: time.Now}
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, logger *common.Logger, config common.RedisConfig) (*PriceStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("address", config.Address).Int("db", config.DB).Msg("Redis connection established")

	return NewPriceStore(client, config.KeyPrefix, logger), nil
}

func (s *PriceStore) key(key models.CacheKey) string {
	if s.prefix == "" {
		return key.String()
	}
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *PriceStore) Exists(ctx context.Context, key models.CacheKey) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check price %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *PriceStore) Get(ctx context.Context, key models.CacheKey) (*models.HistoricalPrice, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price %s: %w", key, err)
	}

	var rec models.HistoricalPriceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid price format for %s: %w", key, err)
	}
	return rec.HistoricalPrice()
}

func (s *PriceStore) Put(ctx context.Context, price *models.HistoricalPrice) error {
	rec := models.NewHistoricalPriceRecord(price, s.now())
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode price %s: %w", rec.CacheKey, err)
	}

	if err := s.client.Set(ctx, s.key(price.CacheKey()), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set price %s: %w", rec.CacheKey, err)
	}
	return nil
}

func (s *PriceStore) Backend() string {
	return "redis"
}

func (s *PriceStore) Close() error {
	return s.client.Close()
}

var _ interfaces.HistoricalPriceCache = (*PriceStore)(nil)
