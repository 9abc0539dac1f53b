package price

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/models"
	tcommon "github.com/bobmcallan/iexgate/tests/common"
)

// clock is fixed at 2022-10-25 10:00 UTC
var testNow = time.Date(2022, 10, 25, 10, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(client *tcommon.MockIEXClient, cache *tcommon.MockPriceCache, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return testNow }), WithLocation(time.UTC)}, opts...)
	return NewService(client, cache, common.NewSilentLogger(), opts...)
}

func rangeOf(s string) *string {
	return &s
}

func aapl20221024() *models.HistoricalPrice {
	return tcommon.NewHistoricalPrice("AAPL", day(2022, 10, 24), "158.15", "159.48", "160.71", "156.32", 88966526)
}

// --- Date lookups ---

func TestHistoricalPrice_DateMissFetchesAndCaches(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	client.SetDay("AAPL", day(2022, 10, 24), aapl20221024())
	svc := newTestService(client, cache)

	d := day(2022, 10, 24)
	prices, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, nil)
	require.NoError(t, err)
	require.Len(t, prices, 1)

	assert.Equal(t, "AAPL", prices[0].Symbol)
	assert.Equal(t, "158.15", prices[0].Open.String())
	assert.Equal(t, "159.48", prices[0].Close.String())
	assert.Equal(t, 1, client.DateCalls)
	assert.Equal(t, []string{"AAPL|20221024"}, client.DateArgs)
	assert.NotNil(t, cache.Entry(models.CacheKey("AAPL2022-10-24")))
}

func TestHistoricalPrice_DateHitSkipsUpstream(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	cache.Seed(aapl20221024())
	svc := newTestService(client, cache)

	d := day(2022, 10, 24)
	prices, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, nil)
	require.NoError(t, err)
	require.Len(t, prices, 1)

	assert.Equal(t, "159.48", prices[0].Close.String())
	assert.Equal(t, 0, client.Calls())
	assert.Equal(t, 0, cache.PutCalls)
}

func TestHistoricalPrice_RepeatedDateCallsUpstreamOnce(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	client.SetDay("AAPL", day(2022, 10, 24), aapl20221024())
	svc := newTestService(client, cache)
	ctx := context.Background()
	d := day(2022, 10, 24)

	first, err := svc.HistoricalPrice(ctx, "AAPL", &d, nil)
	require.NoError(t, err)
	second, err := svc.HistoricalPrice(ctx, "AAPL", &d, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, client.DateCalls)
	require.Len(t, second, 1)
	assert.True(t, first[0].Close.Equal(second[0].Close))
	assert.Equal(t, first[0].Volume, second[0].Volume)
}

func TestHistoricalPrice_LowercaseSymbolSharesCacheEntry(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	client.SetDay("AAPL", day(2022, 10, 24), aapl20221024())
	svc := newTestService(client, cache)
	ctx := context.Background()
	d := day(2022, 10, 24)

	_, err := svc.HistoricalPrice(ctx, "aapl", &d, nil)
	require.NoError(t, err)
	_, err = svc.HistoricalPrice(ctx, "AAPL", &d, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, client.DateCalls)
	assert.Equal(t, 1, cache.Len())
}

func TestHistoricalPrice_DateWindow(t *testing.T) {
	tests := []struct {
		name  string
		date  time.Time
		valid bool
	}{
		{"today", day(2022, 10, 25), true},
		{"yesterday", day(2022, 10, 24), true},
		{"tomorrow", day(2022, 10, 26), false},
		{"five years ago", day(2017, 10, 25), true},
		{"five years and a day ago", day(2017, 10, 24), false},
		{"far future", day(2030, 1, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := tcommon.NewMockIEXClient()
			cache := tcommon.NewMockPriceCache()
			svc := newTestService(client, cache)

			d := tt.date
			_, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, nil)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, 1, client.DateCalls)
				return
			}

			var invalid *models.InvalidArgumentError
			require.True(t, errors.As(err, &invalid), "expected InvalidArgumentError, got %v", err)
			assert.Equal(t, MsgInvalidDate, invalid.Message)
			assert.Equal(t, 0, client.Calls())
			assert.Equal(t, 0, cache.ExistsCalls+cache.GetCalls+cache.PutCalls)
		})
	}
}

func TestValidDate_LeapDayClampsToFebruary28(t *testing.T) {
	now := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	svc := newTestService(tcommon.NewMockIEXClient(), tcommon.NewMockPriceCache(),
		WithClock(func() time.Time { return now }))

	assert.True(t, svc.ValidDate(day(2024, 2, 29)))
	assert.True(t, svc.ValidDate(day(2019, 3, 1)))
	assert.True(t, svc.ValidDate(day(2019, 2, 28)))
	assert.False(t, svc.ValidDate(day(2019, 2, 27)))
}

func TestValidDate_LeapDayLookbackToLeapYear(t *testing.T) {
	now := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	svc := newTestService(tcommon.NewMockIEXClient(), tcommon.NewMockPriceCache(),
		WithClock(func() time.Time { return now }), WithLookback(4))

	assert.True(t, svc.ValidDate(day(2020, 2, 29)))
	assert.False(t, svc.ValidDate(day(2020, 2, 28)))
}

func TestHistoricalPrice_TodayEvaluatedInLocation(t *testing.T) {
	// 2022-10-25 02:00 UTC is still 2022-10-24 in New York
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	now := time.Date(2022, 10, 25, 2, 0, 0, 0, time.UTC)
	svc := NewService(tcommon.NewMockIEXClient(), tcommon.NewMockPriceCache(), common.NewSilentLogger(),
		WithClock(func() time.Time { return now }), WithLocation(ny))

	assert.True(t, svc.ValidDate(day(2022, 10, 24)))
	assert.False(t, svc.ValidDate(day(2022, 10, 25)))
}

func TestHistoricalPrice_WithLookback(t *testing.T) {
	svc := newTestService(tcommon.NewMockIEXClient(), tcommon.NewMockPriceCache(), WithLookback(1))

	assert.True(t, svc.ValidDate(day(2021, 10, 25)))
	assert.False(t, svc.ValidDate(day(2021, 10, 24)))
}

func TestHistoricalPrice_MultiplePointsAllCached(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	client.SetDay("AAPL", day(2022, 10, 24),
		aapl20221024(),
		tcommon.NewHistoricalPrice("AAPL", day(2022, 10, 21), "142.87", "147.27", "147.85", "142.65", 86548600),
	)
	svc := newTestService(client, cache)

	d := day(2022, 10, 24)
	prices, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, nil)
	require.NoError(t, err)

	assert.Len(t, prices, 2)
	assert.Equal(t, 2, cache.PutCalls)
	assert.NotNil(t, cache.Entry(models.CacheKey("AAPL2022-10-24")))
	assert.NotNil(t, cache.Entry(models.CacheKey("AAPL2022-10-21")))
}

func TestHistoricalPrice_EmptyUpstreamNotCached(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	svc := newTestService(client, cache)

	d := day(2022, 10, 22) // Saturday
	prices, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, nil)
	require.NoError(t, err)

	assert.Empty(t, prices)
	assert.Equal(t, 0, cache.PutCalls)
}

func TestHistoricalPrice_CacheReadFailureFallsBackToUpstream(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	cache.ExistsErr = errors.New("connection refused")
	client.SetDay("AAPL", day(2022, 10, 24), aapl20221024())
	svc := newTestService(client, cache)

	d := day(2022, 10, 24)
	prices, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, nil)
	require.NoError(t, err)

	assert.Len(t, prices, 1)
	assert.Equal(t, 1, client.DateCalls)
}

func TestHistoricalPrice_CacheGetFailureFallsBackToUpstream(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	cache.Seed(aapl20221024())
	cache.GetErr = errors.New("corrupt record")
	client.SetDay("AAPL", day(2022, 10, 24), aapl20221024())
	svc := newTestService(client, cache)

	d := day(2022, 10, 24)
	prices, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, nil)
	require.NoError(t, err)

	assert.Len(t, prices, 1)
	assert.Equal(t, 1, client.DateCalls)
}

func TestHistoricalPrice_CacheWriteFailureStillReturnsData(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	cache.PutErr = errors.New("disk full")
	client.SetDay("AAPL", day(2022, 10, 24), aapl20221024())
	svc := newTestService(client, cache)

	d := day(2022, 10, 24)
	prices, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, nil)
	require.NoError(t, err)

	assert.Len(t, prices, 1)
	assert.Equal(t, 1, cache.PutCalls)
	assert.Equal(t, 0, cache.Len())
}

func TestHistoricalPrice_DateUpstreamFailure(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	client.DateErr = errors.New("IEX unavailable")
	svc := newTestService(client, cache)

	d := day(2022, 10, 24)
	_, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, nil)

	var upstream *models.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 0, cache.PutCalls)
}

func TestHistoricalPrice_DateTakesPrecedenceOverRange(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	svc := newTestService(client, tcommon.NewMockPriceCache())

	d := day(2022, 10, 24)
	_, err := svc.HistoricalPrice(context.Background(), "AAPL", &d, rangeOf("bogus"))
	require.NoError(t, err)

	assert.Equal(t, 1, client.DateCalls)
	assert.Equal(t, 0, client.RangeCalls)
}

// --- Range lookups ---

func TestHistoricalPrice_RangeNotCached(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	cache := tcommon.NewMockPriceCache()
	client.SetRange("AAPL", "2d",
		tcommon.NewHistoricalPrice("AAPL", day(2022, 10, 3), "141.065", "142.41", "142.9", "140.27", 85250939),
		tcommon.NewHistoricalPrice("AAPL", day(2022, 10, 4), "145.03", "145.43", "146.22", "144.26", 79471000),
	)
	svc := newTestService(client, cache)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		prices, err := svc.HistoricalPrice(ctx, "AAPL", nil, rangeOf("2d"))
		require.NoError(t, err)
		require.Len(t, prices, 2)
		assert.Equal(t, "142.41", prices[0].Close.String())
	}

	assert.Equal(t, 2, client.RangeCalls)
	assert.Equal(t, 0, cache.ExistsCalls+cache.GetCalls+cache.PutCalls)
}

func TestHistoricalPrice_EveryDefaultRangeAccepted(t *testing.T) {
	for _, rng := range DefaultRanges {
		client := tcommon.NewMockIEXClient()
		svc := newTestService(client, tcommon.NewMockPriceCache())

		_, err := svc.HistoricalPrice(context.Background(), "AAPL", nil, &rng)
		assert.NoError(t, err, "range %s", rng)
		assert.Equal(t, []string{"AAPL|" + rng}, client.RangeArgs)
	}
}

func TestHistoricalPrice_InvalidRange(t *testing.T) {
	for _, rng := range []string{"7y", "1D", "ytd ", "week"} {
		client := tcommon.NewMockIEXClient()
		svc := newTestService(client, tcommon.NewMockPriceCache())

		_, err := svc.HistoricalPrice(context.Background(), "AAPL", nil, &rng)

		var invalid *models.InvalidArgumentError
		require.True(t, errors.As(err, &invalid), "range %q", rng)
		assert.Equal(t, MsgInvalidRange, invalid.Message)
		assert.Equal(t, 0, client.Calls())
	}
}

func TestHistoricalPrice_NoRangeUsesUpstreamDefault(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	svc := newTestService(client, tcommon.NewMockPriceCache())

	_, err := svc.HistoricalPrice(context.Background(), "AAPL", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL|"}, client.RangeArgs)
}

func TestHistoricalPrice_BlankRangeRejected(t *testing.T) {
	for _, rng := range []string{"", " "} {
		client := tcommon.NewMockIEXClient()
		svc := newTestService(client, tcommon.NewMockPriceCache())

		_, err := svc.HistoricalPrice(context.Background(), "AAPL", nil, rangeOf(rng))

		var invalid *models.InvalidArgumentError
		require.True(t, errors.As(err, &invalid), "range %q", rng)
		assert.Equal(t, MsgInvalidRange, invalid.Message)
		assert.Equal(t, 0, client.Calls())
	}
}

func TestHistoricalPrice_WithRanges(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	svc := newTestService(client, tcommon.NewMockPriceCache(), WithRanges([]string{"1y"}))

	_, err := svc.HistoricalPrice(context.Background(), "AAPL", nil, rangeOf("1y"))
	assert.NoError(t, err)
	_, err = svc.HistoricalPrice(context.Background(), "AAPL", nil, rangeOf("5y"))
	assert.Error(t, err)
}

func TestHistoricalPrice_RangeUpstreamFailure(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	client.RangeErr = errors.New("timeout")
	svc := newTestService(client, tcommon.NewMockPriceCache())

	_, err := svc.HistoricalPrice(context.Background(), "AAPL", nil, rangeOf("1m"))

	var upstream *models.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.ErrorContains(t, err, "timeout")
}

// --- Symbols and last traded price ---

func TestListSymbols(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	client.Symbols = []*models.Symbol{{Symbol: "A"}, {Symbol: "AA"}, {Symbol: "AAAU"}}
	svc := newTestService(client, tcommon.NewMockPriceCache())

	symbols, err := svc.ListSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 3)
	assert.Equal(t, "AAAU", symbols[2].Symbol)
}

func TestListSymbols_UpstreamFailure(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	client.SymbolsErr = errors.New("401 unauthorized")
	svc := newTestService(client, tcommon.NewMockPriceCache())

	_, err := svc.ListSymbols(context.Background())
	var upstream *models.UpstreamError
	assert.True(t, errors.As(err, &upstream))
}

func TestLastTradedPrice_EmptyInputSkipsUpstream(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	svc := newTestService(client, tcommon.NewMockPriceCache())

	for _, input := range [][]string{nil, {}} {
		prices, err := svc.LastTradedPrice(context.Background(), input)
		require.NoError(t, err)
		assert.NotNil(t, prices)
		assert.Empty(t, prices)
	}
	assert.Equal(t, 0, client.LastCalls)
}

func TestLastTradedPrice_ForwardsSymbols(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	client.Last["FB"] = &models.LastTradedPrice{Symbol: "FB", Size: 100}
	svc := newTestService(client, tcommon.NewMockPriceCache())

	prices, err := svc.LastTradedPrice(context.Background(), []string{"FB", "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"FB", "AAPL"}}, client.LastRequested)
	require.Len(t, prices, 1)
	assert.Equal(t, "FB", prices[0].Symbol)
}

func TestLastTradedPrice_UpstreamFailure(t *testing.T) {
	client := tcommon.NewMockIEXClient()
	client.LastErr = errors.New("boom")
	svc := newTestService(client, tcommon.NewMockPriceCache())

	_, err := svc.LastTradedPrice(context.Background(), []string{"FB"})
	var upstream *models.UpstreamError
	assert.True(t, errors.As(err, &upstream))
}
