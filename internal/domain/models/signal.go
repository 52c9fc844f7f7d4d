package models

import (
	"strings"
	"time"
)

// Trend is the categorical direction reported by the chart classifier.
type Trend string

const (
	TrendUp       Trend = "Uptrend"
	TrendDown     Trend = "Downtrend"
	TrendSideways Trend = "Sideways"
	TrendUnknown  Trend = "Unknown"
)

// ParseTrend maps classifier output to a Trend. Unrecognised labels become TrendUnknown.
func ParseTrend(s string) Trend {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uptrend", "up":
		return TrendUp
	case "downtrend", "down":
		return TrendDown
	case "sideways", "flat":
		return TrendSideways
	default:
		return TrendUnknown
	}
}

// ChartSignal is produced once per request by the chart classifier.
type ChartSignal struct {
	Trend      Trend    `json:"trend"`
	Confidence float64  `json:"confidence"`
	Volatility *float64 `json:"volatility,omitempty"`
}

// MomentumSignal carries the RSI reading; RSI is nil when the signal is absent.
type MomentumSignal struct {
	RSI *float64 `json:"rsi"`
}

// FundamentalsSnapshot is a point-in-time fundamentals reading for one symbol.
type FundamentalsSnapshot struct {
	Symbol    string    `json:"symbol"`
	PERatio   *float64  `json:"pe"`
	EPS       *float64  `json:"eps"`
	MarketCap *float64  `json:"marketCap,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Stale reports whether the snapshot is older than maxAge at now. A zero maxAge never expires.
func (s FundamentalsSnapshot) Stale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(s.FetchedAt) > maxAge
}

// ChartImage is the uploaded chart payload handed to the classifier.
type ChartImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Candle represents a daily OHLCV record used for local indicator computation.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Technicals is the latest daily indicator reading for a symbol; nil fields were unavailable.
type Technicals struct {
	Symbol string   `json:"symbol"`
	RSI    *float64 `json:"rsi"`
	EMA    *float64 `json:"ema"`
}
