// Package iex provides a client for the IEX Cloud market-data API
package iex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/models"
)

const (
	DefaultBaseURL = "https://cloud.iexapis.com/stable"
	DefaultTimeout = 30 * time.Second
)

// Client implements the IEXClient interface
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new IEX client. token is passed on every request as the token query parameter.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-200 response from IEX
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("IEX API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a GET request and decodes the JSON body into result
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	if c.token != "" {
		params.Set("token", c.token)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", c.baseURL+path).Msg("IEX API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

// GetAllSymbols retrieves every symbol supported by IEX (roughly 9,000 entries)
func (c *Client) GetAllSymbols(ctx context.Context) ([]*models.Symbol, error) {
	var symbols []*models.Symbol
	if err := c.get(ctx, "/ref-data/symbols", nil, &symbols); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("count", len(symbols)).Msg("IEX symbols returned")

	if symbols == nil {
		symbols = []*models.Symbol{}
	}
	return symbols, nil
}

// lastResponse is a /tops/last entry; time is epoch milliseconds
type lastResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Size   int64           `json:"size"`
	Time   int64           `json:"time"`
}

// GetLastTradedPriceForSymbols retrieves the last trade for each symbol
func (c *Client) GetLastTradedPriceForSymbols(ctx context.Context, symbols []string) ([]*models.LastTradedPrice, error) {
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))

	var resp []lastResponse
	if err := c.get(ctx, "/tops/last", params, &resp); err != nil {
		return nil, err
	}

	prices := make([]*models.LastTradedPrice, len(resp))
	for i, r := range resp {
		prices[i] = &models.LastTradedPrice{
			Symbol: r.Symbol,
			Price:  r.Price,
			Size:   r.Size,
		}
		if r.Time > 0 {
			prices[i].Time = time.UnixMilli(r.Time).UTC()
		}
	}

	return prices, nil
}

// chartBarResponse is one entry of a /stock/{symbol}/chart response.
// Volume is decoded as a decimal because IEX occasionally renders it as a float.
type chartBarResponse struct {
	Symbol string          `json:"symbol"`
	Key    string          `json:"key"`
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume decimal.Decimal `json:"volume"`
}

// GetHistoricalPriceForRange retrieves a daily series for a named range
func (c *Client) GetHistoricalPriceForRange(ctx context.Context, symbol, rng string) ([]*models.HistoricalPrice, error) {
	path := fmt.Sprintf("/stock/%s/chart", url.PathEscape(symbol))
	if rng != "" {
		path += "/" + url.PathEscape(rng)
	}

	var bars []chartBarResponse
	if err := c.get(ctx, path, nil, &bars); err != nil {
		return nil, err
	}

	return toHistoricalPrices(symbol, bars)
}

// GetHistoricalPriceForDateString retrieves the series for a YYYYMMDD date
func (c *Client) GetHistoricalPriceForDateString(ctx context.Context, symbol, date string) ([]*models.HistoricalPrice, error) {
	path := fmt.Sprintf("/stock/%s/chart/date/%s", url.PathEscape(symbol), url.PathEscape(date))

	params := url.Values{}
	params.Set("chartByDay", "true")

	var bars []chartBarResponse
	if err := c.get(ctx, path, params, &bars); err != nil {
		return nil, err
	}

	return toHistoricalPrices(symbol, bars)
}

// GetHistoricalPriceForDate formats date as YYYYMMDD and delegates to GetHistoricalPriceForDateString
func (c *Client) GetHistoricalPriceForDate(ctx context.Context, symbol string, date time.Time) ([]*models.HistoricalPrice, error) {
	return c.GetHistoricalPriceForDateString(ctx, symbol, date.Format(models.CompactDateLayout))
}

func toHistoricalPrices(requested string, bars []chartBarResponse) ([]*models.HistoricalPrice, error) {
	prices := make([]*models.HistoricalPrice, 0, len(bars))
	for _, bar := range bars {
		date, err := models.ParseDate(bar.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse chart entry: %w", err)
		}

		symbol := bar.Symbol
		if symbol == "" {
			symbol = bar.Key
		}
		if symbol == "" {
			symbol = requested
		}

		prices = append(prices, &models.HistoricalPrice{
			Symbol: models.NormalizeSymbol(symbol),
			Date:   date,
			Open:   bar.Open,
			Close:  bar.Close,
			High:   bar.High,
			Low:    bar.Low,
			Volume: bar.Volume.IntPart(),
		})
	}
	return prices, nil
}

// Ensure Client implements IEXClient
var _ interfaces.IEXClient = (*Client)(nil)
