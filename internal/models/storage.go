package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// HistoricalPriceRecord is the persisted form of a HistoricalPrice: one row/document per symbol+date.
// Decimals are stored as strings so no backend rounds them.
type HistoricalPriceRecord struct {
	CacheKey string    `json:"cache_key"`
	Symbol   string    `json:"symbol"`
	Date     string    `json:"date"`
	Open     string    `json:"open"`
	Close    string    `json:"close"`
	High     string    `json:"high"`
	Low      string    `json:"low"`
	Volume   int64     `json:"volume"`
	CachedAt time.Time `json:"cached_at"`
}

// NewHistoricalPriceRecord converts a price into its persisted form
func NewHistoricalPriceRecord(p *HistoricalPrice, cachedAt time.Time) *HistoricalPriceRecord {
	return &HistoricalPriceRecord{
		CacheKey: p.CacheKey().String(),
		Symbol:   NormalizeSymbol(p.Symbol),
		Date:     p.Date.Format(DateLayout),
		Open:     p.Open.String(),
		Close:    p.Close.String(),
		High:     p.High.String(),
		Low:      p.Low.String(),
		Volume:   p.Volume,
		CachedAt: cachedAt,
	}
}

// HistoricalPrice converts the record back into a price
func (r *HistoricalPriceRecord) HistoricalPrice() (*HistoricalPrice, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.CacheKey, err)
	}

	var fields [4]decimal.Decimal
	for i, s := range []string{r.Open, r.Close, r.High, r.Low} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid decimal %q: %w", r.CacheKey, s, err)
		}
		fields[i] = d
	}

	return &HistoricalPrice{
		Symbol: r.Symbol,
		Date:   date,
		Open:   fields[0],
		Close:  fields[1],
		High:   fields[2],
		Low:    fields[3],
		Volume: r.Volume,
	}, nil
}
