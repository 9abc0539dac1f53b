// Package models defines data structures for iexgate
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used in JSON and cache keys.
const DateLayout = "2006-01-02"

// CompactDateLayout is the numeric date format used by IEX and the HTTP date parameter.
const CompactDateLayout = "20060102"

func init() {
	// Prices are served as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Symbol is a ticker supported by IEX, as returned by /ref-data/symbols
type Symbol struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Exchange  string `json:"exchange,omitempty"`
	Type      string `json:"type"`
	Date      string `json:"date,omitempty"`
	Region    string `json:"region,omitempty"`
	Currency  string `json:"currency,omitempty"`
	IsEnabled bool   `json:"isEnabled"`
	IEXID     string `json:"iexId,omitempty"`
}

// LastTradedPrice is the most recent trade for a symbol. Never persisted.
type LastTradedPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Size   int64           `json:"size"`
	Time   time.Time       `json:"time"`
}

// HistoricalPrice is one trading day's OHLCV for one symbol.
// High >= max(Open, Close, Low) and Low <= min(Open, Close, High) are assumed, not enforced.
type HistoricalPrice struct {
	Symbol string
	Date   time.Time
	Open   decimal.Decimal
	Close  decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Volume int64
}

type historicalPriceJSON struct {
	Symbol string          `json:"symbol"`
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume int64           `json:"volume"`
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (p HistoricalPrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(historicalPriceJSON{
		Symbol: p.Symbol,
		Date:   p.Date.Format(DateLayout),
		Open:   p.Open,
		Close:  p.Close,
		High:   p.High,
		Low:    p.Low,
		Volume: p.Volume,
	})
}

// UnmarshalJSON accepts the YYYY-MM-DD date form produced by MarshalJSON and by IEX.
func (p *HistoricalPrice) UnmarshalJSON(data []byte) error {
	var raw historicalPriceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	*p = HistoricalPrice{
		Symbol: raw.Symbol,
		Date:   date,
		Open:   raw.Open,
		Close:  raw.Close,
		High:   raw.High,
		Low:    raw.Low,
		Volume: raw.Volume,
	}
	return nil
}

// CacheKey returns the key this point is stored under.
func (p *HistoricalPrice) CacheKey() CacheKey {
	return NewCacheKey(p.Symbol, p.Date)
}

// Consistent reports whether high and low bound the open and close.
func (p *HistoricalPrice) Consistent() bool {
	maxOC := decimal.Max(p.Open, p.Close)
	minOC := decimal.Min(p.Open, p.Close)
	return p.High.GreaterThanOrEqual(maxOC) &&
		p.High.GreaterThanOrEqual(p.Low) &&
		p.Low.LessThanOrEqual(minOC)
}

// CacheKey identifies a cached historical price: upper-cased symbol followed by YYYY-MM-DD.
type CacheKey string

// NewCacheKey derives the canonical key for a symbol on a calendar date.
func NewCacheKey(symbol string, date time.Time) CacheKey {
	return CacheKey(NormalizeSymbol(symbol) + date.Format(DateLayout))
}

func (k CacheKey) String() string {
	return string(k)
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// CivilDate truncates t to midnight UTC of its calendar date in t's location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	date, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return date, nil
}

// ParseCompactDate parses a YYYYMMDD date.
func ParseCompactDate(s string) (time.Time, error) {
	date, err := time.Parse(CompactDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return date, nil
}
