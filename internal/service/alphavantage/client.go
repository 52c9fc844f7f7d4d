package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/internal/service/upstream"
)

// Client fetches company fundamentals from the Alpha Vantage OVERVIEW endpoint.
type Client struct {
	base   *upstream.HTTPServiceBase
	apiKey string
	now    func() time.Time
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		base:   upstream.NewHTTPServiceBase("alphavantage", baseURL, timeout, upstream.WithRetries(2)),
		apiKey: apiKey,
		now:    time.Now,
	}
}

// overview holds the subset of OVERVIEW fields we use. Alpha Vantage
// reports numbers as strings and uses "None" or "-" for missing values.
type overview struct {
	Symbol               string `json:"Symbol"`
	PERatio              string `json:"PERatio"`
	EPS                  string `json:"EPS"`
	MarketCapitalization string `json:"MarketCapitalization"`

	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// Fetch returns a fresh snapshot for symbol stamped with the fetch time.
func (c *Client) Fetch(ctx context.Context, symbol string) (models.FundamentalsSnapshot, error) {
	if symbol == "" {
		return models.FundamentalsSnapshot{}, domrepo.ErrNoSymbol
	}
	q := url.Values{}
	q.Set("function", "OVERVIEW")
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)

	var ov overview
	if err := c.base.GetJSON(ctx, "/query", q, &ov); err != nil {
		return models.FundamentalsSnapshot{}, err
	}

	switch {
	case ov.ErrorMessage != "":
		return models.FundamentalsSnapshot{}, fmt.Errorf("alphavantage %s: %s", symbol, ov.ErrorMessage)
	case ov.Note != "":
		return models.FundamentalsSnapshot{}, fmt.Errorf("alphavantage %s: rate limited: %s", symbol, ov.Note)
	case ov.Information != "":
		return models.FundamentalsSnapshot{}, fmt.Errorf("alphavantage %s: %s", symbol, ov.Information)
	case ov.Symbol == "":
		// unknown tickers come back as {}
		return models.FundamentalsSnapshot{}, fmt.Errorf("alphavantage %s: %w", symbol, domrepo.ErrNoData)
	}

	snap := models.FundamentalsSnapshot{
		Symbol:    symbol,
		FetchedAt: c.now().UTC(),
	}
	var err error
	if snap.PERatio, err = parseNumber(ov.PERatio); err != nil {
		return models.FundamentalsSnapshot{}, fmt.Errorf("alphavantage %s PERatio: %w", symbol, err)
	}
	if snap.EPS, err = parseNumber(ov.EPS); err != nil {
		return models.FundamentalsSnapshot{}, fmt.Errorf("alphavantage %s EPS: %w", symbol, err)
	}
	if snap.MarketCap, err = parseNumber(ov.MarketCapitalization); err != nil {
		return models.FundamentalsSnapshot{}, fmt.Errorf("alphavantage %s MarketCapitalization: %w", symbol, err)
	}
	return snap, nil
}

// parseNumber maps "", "None" and "-" to nil.
func parseNumber(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "none", "-", "n/a":
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return models.Float(d.InexactFloat64()), nil
}

var _ domrepo.FundamentalsProvider = (*Client)(nil)
