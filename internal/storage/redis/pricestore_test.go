package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
	tcommon "github.com/bobmcallan/iexgate/tests/common"
)

// newTestPriceStore uses a unique key prefix per test so tests share one container
func newTestPriceStore(t *testing.T) *PriceStore {
	t.Helper()
	addr := tcommon.StartRedis(t)

	store, err := Open(context.Background(), common.NewSilentLogger(), common.RedisConfig{
		Address:   addr,
		KeyPrefix: fmt.Sprintf("t%d", time.Now().UnixNano()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPriceStore_Suite(t *testing.T) {
	tcommon.RunHistoricalPriceCacheSuite(t, func(t *testing.T) interfaces.HistoricalPriceCache {
		return newTestPriceStore(t)
	})
}

func TestPriceStore_NoExpiry(t *testing.T) {
	store := newTestPriceStore(t)
	ctx := context.Background()

	price := tcommon.NewHistoricalPrice("AAPL", time.Date(2022, 10, 24, 0, 0, 0, 0, time.UTC), "158.15", "159.48", "160.71", "156.32", 88966526)
	require.NoError(t, store.Put(ctx, price))

	ttl, err := store.client.TTL(ctx, store.key(price.CacheKey())).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestPriceStore_KeyPrefix(t *testing.T) {
	s := &PriceStore{prefix: "historical_price"}
	assert.Equal(t, "historical_price:AAPL2022-10-24", s.key(models.CacheKey("AAPL2022-10-24")))

	s.prefix = ""
	assert.Equal(t, "AAPL2022-10-24", s.key(models.CacheKey("AAPL2022-10-24")))
}

func TestOpen_Unreachable(t *testing.T) {
	_, err := Open(context.Background(), common.NewSilentLogger(), common.RedisConfig{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}
