// Package interfaces defines service contracts for iexgate
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/iexgate/internal/models"
)

// IEXClient provides access to the IEX market-data API.
// Each call is a single, independent outbound request.
type IEXClient interface {
	// GetAllSymbols retrieves every symbol supported by IEX
	GetAllSymbols(ctx context.Context) ([]*models.Symbol, error)

	// GetLastTradedPriceForSymbols retrieves the last trade for each symbol
	GetLastTradedPriceForSymbols(ctx context.Context, symbols []string) ([]*models.LastTradedPrice, error)

	// GetHistoricalPriceForRange retrieves a daily series for a named range (e.g. "1y").
	// An empty range lets IEX choose its default window.
	GetHistoricalPriceForRange(ctx context.Context, symbol, rng string) ([]*models.HistoricalPrice, error)

	// GetHistoricalPriceForDateString retrieves the series for a YYYYMMDD date
	GetHistoricalPriceForDateString(ctx context.Context, symbol, date string) ([]*models.HistoricalPrice, error)

	// GetHistoricalPriceForDate formats date as YYYYMMDD and delegates to GetHistoricalPriceForDateString
	GetHistoricalPriceForDate(ctx context.Context, symbol string, date time.Time) ([]*models.HistoricalPrice, error)
}
