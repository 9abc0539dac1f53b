package common

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
)

// MockIEXClient implements IEXClient for testing.
// Responses are configured per symbol; unknown lookups return empty results.
type MockIEXClient struct {
	mu sync.Mutex

	Symbols   []*models.Symbol
	Last      map[string]*models.LastTradedPrice
	RangeData map[string][]*models.HistoricalPrice // keyed by SYMBOL|range
	DateData  map[string][]*models.HistoricalPrice // keyed by SYMBOL|YYYYMMDD

	SymbolsErr error
	LastErr    error
	RangeErr   error
	DateErr    error

	SymbolsCalls int
	LastCalls    int
	RangeCalls   int
	DateCalls    int

	LastRequested [][]string
	RangeArgs     []string
	DateArgs      []string
}

// NewMockIEXClient creates a mock IEX client
func NewMockIEXClient() *MockIEXClient {
	return &MockIEXClient{
		Last:      make(map[string]*models.LastTradedPrice),
		RangeData: make(map[string][]*models.HistoricalPrice),
		DateData:  make(map[string][]*models.HistoricalPrice),
	}
}

func mockKey(symbol, suffix string) string {
	return models.NormalizeSymbol(symbol) + "|" + suffix
}

// SetRange configures the series returned for symbol over rng
func (m *MockIEXClient) SetRange(symbol, rng string, prices ...*models.HistoricalPrice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RangeData[mockKey(symbol, rng)] = prices
}

// SetDay configures the series returned for symbol on date
func (m *MockIEXClient) SetDay(symbol string, date time.Time, prices ...*models.HistoricalPrice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DateData[mockKey(symbol, date.Format(models.CompactDateLayout))] = prices
}

func (m *MockIEXClient) GetAllSymbols(ctx context.Context) ([]*models.Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SymbolsCalls++
	if m.SymbolsErr != nil {
		return nil, m.SymbolsErr
	}
	if m.Symbols == nil {
		return []*models.Symbol{}, nil
	}
	return m.Symbols, nil
}

func (m *MockIEXClient) GetLastTradedPriceForSymbols(ctx context.Context, symbols []string) ([]*models.LastTradedPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastCalls++
	m.LastRequested = append(m.LastRequested, append([]string(nil), symbols...))
	if m.LastErr != nil {
		return nil, m.LastErr
	}

	prices := []*models.LastTradedPrice{}
	for _, s := range symbols {
		if p, ok := m.Last[models.NormalizeSymbol(s)]; ok {
			prices = append(prices, p)
		}
	}
	return prices, nil
}

func (m *MockIEXClient) GetHistoricalPriceForRange(ctx context.Context, symbol, rng string) ([]*models.HistoricalPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RangeCalls++
	m.RangeArgs = append(m.RangeArgs, symbol+"|"+rng)
	if m.RangeErr != nil {
		return nil, m.RangeErr
	}
	if prices, ok := m.RangeData[mockKey(symbol, rng)]; ok {
		return prices, nil
	}
	return []*models.HistoricalPrice{}, nil
}

func (m *MockIEXClient) GetHistoricalPriceForDateString(ctx context.Context, symbol, date string) ([]*models.HistoricalPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DateCalls++
	m.DateArgs = append(m.DateArgs, symbol+"|"+date)
	if m.DateErr != nil {
		return nil, m.DateErr
	}
	if prices, ok := m.DateData[mockKey(symbol, date)]; ok {
		return prices, nil
	}
	return []*models.HistoricalPrice{}, nil
}

func (m *MockIEXClient) GetHistoricalPriceForDate(ctx context.Context, symbol string, date time.Time) ([]*models.HistoricalPrice, error) {
	return m.GetHistoricalPriceForDateString(ctx, symbol, date.Format(models.CompactDateLayout))
}

// Calls returns the total number of upstream requests made
func (m *MockIEXClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SymbolsCalls + m.LastCalls + m.RangeCalls + m.DateCalls
}

// MockPriceCache implements HistoricalPriceCache in memory with injectable failures
type MockPriceCache struct {
	mu      sync.Mutex
	entries map[models.CacheKey]*models.HistoricalPrice

	ExistsErr error
	GetErr    error
	PutErr    error

	ExistsCalls int
	GetCalls    int
	PutCalls    int
	Closed      bool
}

// NewMockPriceCache creates an empty mock cache
func NewMockPriceCache() *MockPriceCache {
	return &MockPriceCache{entries: make(map[models.CacheKey]*models.HistoricalPrice)}
}

// Seed stores prices directly, bypassing counters and injected errors
func (m *MockPriceCache) Seed(prices ...*models.HistoricalPrice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range prices {
		m.entries[p.CacheKey()] = p
	}
}

// Len returns the number of cached entries
func (m *MockPriceCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entry returns the stored price for key, or nil
func (m *MockPriceCache) Entry(key models.CacheKey) *models.HistoricalPrice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key]
}

func (m *MockPriceCache) Exists(ctx context.Context, key models.CacheKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsCalls++
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.entries[key]
	return ok, nil
}

func (m *MockPriceCache) Get(ctx context.Context, key models.CacheKey) (*models.HistoricalPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.entries[key]
	if !ok {
		return nil, interfaces.ErrCacheMiss
	}
	return p, nil
}

func (m *MockPriceCache) Put(ctx context.Context, price *models.HistoricalPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.PutErr != nil {
		return m.PutErr
	}
	m.entries[price.CacheKey()] = price
	return nil
}

func (m *MockPriceCache) Backend() string {
	return "mock"
}

func (m *MockPriceCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// NewHistoricalPrice builds a price from decimal strings; panics on malformed input
func NewHistoricalPrice(symbol string, date time.Time, open, close, high, low string, volume int64) *models.HistoricalPrice {
	return &models.HistoricalPrice{
		Symbol: strings.ToUpper(symbol),
		Date:   models.CivilDate(date),
		Open:   decimal.RequireFromString(open),
		Close:  decimal.RequireFromString(close),
		High:   decimal.RequireFromString(high),
		Low:    decimal.RequireFromString(low),
		Volume: volume,
	}
}

var (
	_ interfaces.IEXClient            = (*MockIEXClient)(nil)
	_ interfaces.HistoricalPriceCache = (*MockPriceCache)(nil)
)
