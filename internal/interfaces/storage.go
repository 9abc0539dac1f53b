// Package interfaces defines service contracts for iexgate
package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/iexgate/internal/models"
)

// ErrCacheMiss is returned by HistoricalPriceCache.Get when no record exists for a key.
var ErrCacheMiss = errors.New("historical price not cached")

// HistoricalPriceCache persists historical prices keyed by symbol+date.
// Put is an upsert; there is no deletion or expiry. Implementations must be safe for concurrent use.
type HistoricalPriceCache interface {
	Exists(ctx context.Context, key models.CacheKey) (bool, error)
	Get(ctx context.Context, key models.CacheKey) (*models.HistoricalPrice, error)
	Put(ctx context.Context, price *models.HistoricalPrice) error

	// Backend names the storage engine, e.g. "surrealdb"
	Backend() string

	Close() error
}
