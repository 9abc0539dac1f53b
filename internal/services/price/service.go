// Package price serves symbol lists, last trades and historical prices,
// caching single-day historical lookups by symbol and date.
package price

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
)

// Validation messages returned to callers verbatim.
const (
	MsgInvalidDate  = "Date is not valid"
	MsgInvalidRange = "Range value is not valid"
)

// DefaultLookbackYears bounds how far back a single-date lookup may reach.
const DefaultLookbackYears = 5

// DefaultRanges are the range tokens accepted by the IEX chart endpoint.
var DefaultRanges = []string{
	"max", "5y", "2y", "1y", "ytd", "6m", "3m", "1m", "1mm", "5d", "2d", "5dm", "date", "dynamic",
}

// Service implements interfaces.PriceService.
type Service struct {
	client   interfaces.IEXClient
	cache    interfaces.HistoricalPriceCache
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
	location *time.Location
	ranges   map[string]struct{}
	lookback int
}

// Option configures the service
type Option func(*Service)

// WithClock overrides the clock used to determine today's date
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the timezone in which today's date is evaluated
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithRanges replaces the accepted range tokens
func WithRanges(ranges []string) Option {
	return func(s *Service) {
		s.ranges = toSet(ranges)
	}
}

// WithLookback sets the number of years a single-date lookup may reach back
func WithLookback(years int) Option {
	return func(s *Service) {
		if years > 0 {
			s.lookback = years
		}
	}
}

// NewService creates a price service over an IEX client and a historical price cache.
func NewService(client interfaces.IEXClient, cache interfaces.HistoricalPriceCache, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client:   client,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		location: time.Local,
		ranges:   toSet(DefaultRanges),
		lookback: DefaultLookbackYears,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// ListSymbols returns every symbol supported by IEX.
func (s *Service) ListSymbols(ctx context.Context) ([]*models.Symbol, error) {
	symbols, err := s.client.GetAllSymbols(ctx)
	if err != nil {
		return nil, &models.UpstreamError{Op: "list symbols", Err: err}
	}
	return symbols, nil
}

// LastTradedPrice returns the last trade for each symbol. No symbols means no upstream call.
func (s *Service) LastTradedPrice(ctx context.Context, symbols []string) ([]*models.LastTradedPrice, error) {
	if len(symbols) == 0 {
		return []*models.LastTradedPrice{}, nil
	}

	prices, err := s.client.GetLastTradedPriceForSymbols(ctx, symbols)
	if err != nil {
		return nil, &models.UpstreamError{Op: "last traded price", Err: err}
	}
	return prices, nil
}

// HistoricalPrice returns the series for one date when date is set, otherwise for rng.
// A nil rng uses the upstream default window; a present rng, even blank, must be a known range.
// Only single-date lookups touch the cache.
func (s *Service) HistoricalPrice(ctx context.Context, symbol string, date *time.Time, rng *string) ([]*models.HistoricalPrice, error) {
	if date != nil {
		return s.historicalPriceForDate(ctx, symbol, *date)
	}

	var window string
	if rng != nil {
		if _, ok := s.ranges[*rng]; !ok {
			return nil, models.NewInvalidArgument(MsgInvalidRange)
		}
		window = *rng
	}

	prices, err := s.client.GetHistoricalPriceForRange(ctx, symbol, window)
	if err != nil {
		return nil, &models.UpstreamError{Op: "historical price for range", Err: err}
	}
	return prices, nil
}

// ValidDate reports whether date lies within [today-lookback, today], both inclusive,
// where today is the current calendar date in the service's location.
func (s *Service) ValidDate(date time.Time) bool {
	today := models.CivilDate(s.now().In(s.location))
	earliest := today.AddDate(-s.lookback, 0, 0)
	if earliest.Day() != today.Day() {
		// Feb 29 into a non-leap year: clamp to Feb 28
		earliest = earliest.AddDate(0, 0, -earliest.Day())
	}
	day := models.CivilDate(date)
	return !day.Before(earliest) && !day.After(today)
}

func (s *Service) historicalPriceForDate(ctx context.Context, symbol string, date time.Time) ([]*models.HistoricalPrice, error) {
	if !s.ValidDate(date) {
		return nil, models.NewInvalidArgument(MsgInvalidDate)
	}

	day := models.CivilDate(date)
	key := models.NewCacheKey(symbol, day)

	if cached, ok := s.lookup(ctx, key); ok {
		s.logger.Debug().Str("key", key.String()).Msg("Historical price served from cache")
		return []*models.HistoricalPrice{cached}, nil
	}

	prices, err := s.client.GetHistoricalPriceForDate(ctx, symbol, day)
	if err != nil {
		return nil, &models.UpstreamError{Op: "historical price for date", Err: err}
	}

	if len(prices) > 1 {
		s.logger.Debug().Str("key", key.String()).Int("count", len(prices)).Msg("Upstream returned multiple points for a single date")
	}

	for _, p := range prices {
		if !p.Consistent() {
			s.logger.Debug().Str("key", p.CacheKey().String()).Msg("Historical price high/low do not bound open/close")
		}
		if err := s.cache.Put(ctx, p); err != nil {
			s.logger.Warn().Err(err).Str("key", p.CacheKey().String()).Msg("Failed to cache historical price")
		}
	}

	return prices, nil
}

// lookup returns the cached price for key. Cache read errors are logged and treated as a miss.
func (s *Service) lookup(ctx context.Context, key models.CacheKey) (*models.HistoricalPrice, bool) {
	exists, err := s.cache.Exists(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache lookup failed, fetching from upstream")
		return nil, false
	}
	if !exists {
		return nil, false
	}

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache read failed, fetching from upstream")
		}
		return nil, false
	}
	return cached, true
}

var _ interfaces.PriceService = (*Service)(nil)
