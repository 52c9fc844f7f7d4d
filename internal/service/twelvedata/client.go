package twelvedata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/internal/service/upstream"
)

// Client reads daily technical indicators from the Twelve Data REST API.
type Client struct {
	base      *upstream.HTTPServiceBase
	apiKey    string
	interval  string
	suffix    string
	rsiPeriod int
	emaPeriod int
}

// Option configures Client.
type Option func(*Client)

// WithInterval sets the candle interval (default 1day).
func WithInterval(interval string) Option {
	return func(c *Client) {
		if interval != "" {
			c.interval = interval
		}
	}
}

// WithSymbolSuffix appends an exchange suffix such as ".NSE" to every symbol.
func WithSymbolSuffix(suffix string) Option {
	return func(c *Client) { c.suffix = suffix }
}

// WithPeriods sets the RSI and EMA look-back periods.
func WithPeriods(rsi, ema int) Option {
	return func(c *Client) {
		if rsi > 0 {
			c.rsiPeriod = rsi
		}
		if ema > 0 {
			c.emaPeriod = ema
		}
	}
}

func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		base:      upstream.NewHTTPServiceBase("twelvedata", baseURL, timeout, upstream.WithRetries(2)),
		apiKey:    apiKey,
		interval:  "1day",
		rsiPeriod: 14,
		emaPeriod: 20,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// indicatorResponse covers both the success and the error envelope.
type indicatorResponse struct {
	Status  string              `json:"status"`
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Values  []map[string]string `json:"values"`
}

// RSI returns the most recent RSI value.
func (c *Client) RSI(ctx context.Context, symbol string) (float64, error) {
	return c.latest(ctx, "rsi", symbol, c.rsiPeriod)
}

// EMA returns the most recent EMA value.
func (c *Client) EMA(ctx context.Context, symbol string) (float64, error) {
	return c.latest(ctx, "ema", symbol, c.emaPeriod)
}

func (c *Client) latest(ctx context.Context, indicator, symbol string, period int) (float64, error) {
	if symbol == "" {
		return 0, domrepo.ErrNoSymbol
	}
	q := url.Values{}
	q.Set("symbol", symbol+c.suffix)
	q.Set("interval", c.interval)
	q.Set("time_period", strconv.Itoa(period))
	q.Set("apikey", c.apiKey)

	var resp indicatorResponse
	if err := c.base.GetJSON(ctx, "/"+indicator, q, &resp); err != nil {
		return 0, err
	}
	if resp.Status == "error" {
		return 0, fmt.Errorf("twelvedata %s: code %d: %s", indicator, resp.Code, resp.Message)
	}
	if len(resp.Values) == 0 {
		return 0, fmt.Errorf("twelvedata %s %s: %w", indicator, symbol, domrepo.ErrNoData)
	}
	raw, ok := resp.Values[0][indicator]
	if !ok || raw == "" {
		return 0, fmt.Errorf("twelvedata %s %s: %w", indicator, symbol, domrepo.ErrNoData)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("twelvedata %s: parse %q: %w", indicator, raw, err)
	}
	return d.InexactFloat64(), nil
}

var (
	_ domrepo.MomentumProvider = (*Client)(nil)
	_ domrepo.EMAProvider      = (*Client)(nil)
)
