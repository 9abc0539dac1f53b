// Package interfaces defines service contracts for iexgate
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/iexgate/internal/models"
)

// PriceService validates market-data queries and serves them from the cache or IEX
type PriceService interface {
	// ListSymbols returns every symbol supported upstream
	ListSymbols(ctx context.Context) ([]*models.Symbol, error)

	// LastTradedPrice returns the last trade for each symbol; empty input yields an empty result
	LastTradedPrice(ctx context.Context, symbols []string) ([]*models.LastTradedPrice, error)

	// HistoricalPrice returns the series for a single date (cached) or a named range (never cached).
	// date takes precedence over rng when both are set.
	HistoricalPrice(ctx context.Context, symbol string, date *time.Time, rng *string) ([]*models.HistoricalPrice, error)
}
