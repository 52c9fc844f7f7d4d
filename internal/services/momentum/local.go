package momentum

import (
	"context"
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	indmomentum "github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
)

// warmup is how many periods of history are loaded per indicator period.
// Wilder smoothing needs several periods before the reading settles.
const warmup = 10

// LocalProvider computes daily RSI and EMA from stored candles.
type LocalProvider struct {
	store     domrepo.CandleStore
	rsiPeriod int
	emaPeriod int
}

func NewLocalProvider(store domrepo.CandleStore, rsiPeriod, emaPeriod int) *LocalProvider {
	if rsiPeriod <= 0 {
		rsiPeriod = 14
	}
	if emaPeriod <= 0 {
		emaPeriod = 20
	}
	return &LocalProvider{store: store, rsiPeriod: rsiPeriod, emaPeriod: emaPeriod}
}

// RSI returns the most recent RSI reading for symbol.
func (p *LocalProvider) RSI(ctx context.Context, symbol string) (float64, error) {
	closes, err := p.closes(ctx, symbol, p.rsiPeriod)
	if err != nil {
		return 0, err
	}
	v, ok := Last(helper.ChanToSlice(indmomentum.NewRsiWithPeriod[float64](p.rsiPeriod).Compute(helper.SliceToChan(closes))))
	if !ok {
		return 0, fmt.Errorf("rsi %s: %w", symbol, domrepo.ErrNoData)
	}
	return math.Max(0, math.Min(100, v)), nil
}

// EMA returns the most recent exponential moving average of closes.
func (p *LocalProvider) EMA(ctx context.Context, symbol string) (float64, error) {
	closes, err := p.closes(ctx, symbol, p.emaPeriod)
	if err != nil {
		return 0, err
	}
	v, ok := Last(helper.ChanToSlice(trend.NewEmaWithPeriod[float64](p.emaPeriod).Compute(helper.SliceToChan(closes))))
	if !ok {
		return 0, fmt.Errorf("ema %s: %w", symbol, domrepo.ErrNoData)
	}
	return v, nil
}

func (p *LocalProvider) closes(ctx context.Context, symbol string, period int) ([]float64, error) {
	if symbol == "" {
		return nil, domrepo.ErrNoSymbol
	}
	candles, err := p.store.GetLatestNDaily(ctx, symbol, period*warmup)
	if err != nil {
		return nil, fmt.Errorf("load candles %s: %w", symbol, err)
	}
	closes := Closes(candles)
	if len(closes) <= period {
		return nil, fmt.Errorf("need more than %d closes for %s, have %d: %w", period, symbol, len(closes), domrepo.ErrNoData)
	}
	return closes, nil
}

// Closes extracts positive, finite closing prices in input order.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, 0, len(candles))
	for _, c := range candles {
		if c.Close <= 0 || math.IsNaN(c.Close) || math.IsInf(c.Close, 0) {
			continue
		}
		out = append(out, c.Close)
	}
	return out
}

// Last returns the final finite value of series.
func Last(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i], true
		}
	}
	return 0, false
}

var (
	_ domrepo.MomentumProvider = (*LocalProvider)(nil)
	_ domrepo.EMAProvider      = (*LocalProvider)(nil)
)
