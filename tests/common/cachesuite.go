package common

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
)

// RunHistoricalPriceCacheSuite exercises the behaviour every cache backend must share.
// newCache must return an empty cache; the suite closes nothing.
func RunHistoricalPriceCacheSuite(t *testing.T, newCache func(t *testing.T) interfaces.HistoricalPriceCache) {
	ctx := context.Background()
	day := time.Date(2022, 10, 24, 0, 0, 0, 0, time.UTC)

	t.Run("MissOnEmpty", func(t *testing.T) {
		cache := newCache(t)
		key := models.NewCacheKey("AAPL", day)

		exists, err := cache.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = cache.Get(ctx, key)
		assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
	})

	t.Run("PutThenGet", func(t *testing.T) {
		cache := newCache(t)
		price := NewHistoricalPrice("AAPL", day, "158.15", "159.48", "160.71", "156.32", 88966526)

		require.NoError(t, cache.Put(ctx, price))

		exists, err := cache.Exists(ctx, price.CacheKey())
		require.NoError(t, err)
		assert.True(t, exists)

		got, err := cache.Get(ctx, models.CacheKey("AAPL2022-10-24"))
		require.NoError(t, err)
		assert.Equal(t, "AAPL", got.Symbol)
		assert.True(t, got.Date.Equal(day), "date %v", got.Date)
		assert.True(t, got.Open.Equal(price.Open), "open %s", got.Open)
		assert.True(t, got.Close.Equal(price.Close), "close %s", got.Close)
		assert.True(t, got.High.Equal(price.High), "high %s", got.High)
		assert.True(t, got.Low.Equal(price.Low), "low %s", got.Low)
		assert.Equal(t, int64(88966526), got.Volume)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		cache := newCache(t)
		first := NewHistoricalPrice("MSFT", day, "1", "2", "3", "0.5", 10)
		second := NewHistoricalPrice("MSFT", day, "4", "5", "6", "3.5", 20)

		require.NoError(t, cache.Put(ctx, first))
		require.NoError(t, cache.Put(ctx, second))

		got, err := cache.Get(ctx, second.CacheKey())
		require.NoError(t, err)
		assert.True(t, got.Close.Equal(second.Close))
		assert.Equal(t, int64(20), got.Volume)
	})

	t.Run("KeysAreCaseInsensitive", func(t *testing.T) {
		cache := newCache(t)
		price := NewHistoricalPrice("ibm", day, "120", "121", "122", "119", 5)
		price.Symbol = "ibm"

		require.NoError(t, cache.Put(ctx, price))

		got, err := cache.Get(ctx, models.NewCacheKey("IBM", day))
		require.NoError(t, err)
		assert.Equal(t, "IBM", got.Symbol)
	})

	t.Run("DatesAreIndependent", func(t *testing.T) {
		cache := newCache(t)
		require.NoError(t, cache.Put(ctx, NewHistoricalPrice("TSLA", day, "1", "1", "1", "1", 1)))

		exists, err := cache.Exists(ctx, models.NewCacheKey("TSLA", day.AddDate(0, 0, 1)))
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = cache.Exists(ctx, models.NewCacheKey("TSL", day))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		cache := newCache(t)
		var wg sync.WaitGroup
		errs := make(chan error, 40)

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p := NewHistoricalPrice(fmt.Sprintf("SYM%d", i%5), day.AddDate(0, 0, -i), "10", "11", "12", "9", int64(i))
				if err := cache.Put(ctx, p); err != nil {
					errs <- err
					return
				}
				if _, err := cache.Get(ctx, p.CacheKey()); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Errorf("concurrent access: %v", err)
		}
	})
}
