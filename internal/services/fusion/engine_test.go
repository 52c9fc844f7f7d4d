package fusion

import (
	"testing"
	"time"

	"ChartVerdict/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fundamentals(pe, eps *float64) *models.FundamentalsSnapshot {
	return &models.FundamentalsSnapshot{Symbol: "ACME", PERatio: pe, EPS: eps, FetchedAt: time.Unix(0, 0)}
}

func TestEvaluateScenarios(t *testing.T) {
	e := New()

	tests := []struct {
		name         string
		chart        models.ChartSignal
		rsi          *float64
		fundamentals *models.FundamentalsSnapshot
		wantAction   models.Action
		wantReason   string
	}{
		{
			name:       "confident uptrend alone buys",
			chart:      models.ChartSignal{Trend: models.TrendUp, Confidence: 0.8},
			wantAction: models.ActionBuy,
			wantReason: ReasonStrongUptrend,
		},
		{
			name:       "overbought rsi overrides uptrend",
			chart:      models.ChartSignal{Trend: models.TrendUp, Confidence: 0.8},
			rsi:        models.Float(75),
			wantAction: models.ActionSell,
			wantReason: ReasonOverbought,
		},
		{
			name:         "weak fundamentals veto buy",
			chart:        models.ChartSignal{Trend: models.TrendUp, Confidence: 0.8},
			fundamentals: fundamentals(models.Float(40), models.Float(-2)),
			wantAction:   models.ActionHold,
			wantReason:   ReasonWeakFundamental,
		},
		{
			name:       "low volatility overrides downtrend",
			chart:      models.ChartSignal{Trend: models.TrendDown, Confidence: 0.7, Volatility: models.Float(0.01)},
			wantAction: models.ActionHold,
			wantReason: ReasonLowVolatility,
		},
		{
			name:       "low confidence keeps baseline",
			chart:      models.ChartSignal{Trend: models.TrendUp, Confidence: 0.59},
			wantAction: models.ActionHold,
			wantReason: ReasonUnclear,
		},
		{
			name:       "confidence threshold is inclusive",
			chart:      models.ChartSignal{Trend: models.TrendDown, Confidence: 0.6},
			wantAction: models.ActionSell,
			wantReason: ReasonStrongDowntrend,
		},
		{
			name:       "oversold rsi buys on sideways chart",
			chart:      models.ChartSignal{Trend: models.TrendSideways, Confidence: 0.9},
			rsi:        models.Float(25),
			wantAction: models.ActionBuy,
			wantReason: ReasonOversold,
		},
		{
			name:         "oversold buy survives one passing fundamental",
			chart:        models.ChartSignal{Trend: models.TrendDown, Confidence: 0.9},
			rsi:          models.Float(20),
			fundamentals: fundamentals(models.Float(40), models.Float(1.5)),
			wantAction:   models.ActionBuy,
			wantReason:   ReasonOversold,
		},
		{
			name:       "volatility guard dominates momentum",
			chart:      models.ChartSignal{Trend: models.TrendUp, Confidence: 0.8, Volatility: models.Float(0.005)},
			rsi:        models.Float(75),
			wantAction: models.ActionHold,
			wantReason: ReasonLowVolatility,
		},
		{
			name:       "volatility at threshold does not guard",
			chart:      models.ChartSignal{Trend: models.TrendUp, Confidence: 0.8, Volatility: models.Float(0.02)},
			wantAction: models.ActionBuy,
			wantReason: ReasonStrongUptrend,
		},
		{
			name:       "neutral rsi leaves chart verdict",
			chart:      models.ChartSignal{Trend: models.TrendUp, Confidence: 0.8},
			rsi:        models.Float(50),
			wantAction: models.ActionBuy,
			wantReason: ReasonStrongUptrend,
		},
		{
			name:         "empty fundamentals snapshot scores zero",
			chart:        models.ChartSignal{Trend: models.TrendUp, Confidence: 0.8},
			fundamentals: fundamentals(nil, nil),
			wantAction:   models.ActionHold,
			wantReason:   ReasonWeakFundamental,
		},
		{
			name:       "unknown trend holds",
			chart:      models.ChartSignal{Trend: models.TrendUnknown, Confidence: 1},
			wantAction: models.ActionHold,
			wantReason: ReasonUnclear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := e.Evaluate(tt.chart, models.MomentumSignal{RSI: tt.rsi}, tt.fundamentals)
			assert.Equal(t, tt.wantAction, v.Action)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.chart.Trend, v.Trend)
			assert.Equal(t, tt.chart.Confidence, v.Confidence)
		})
	}
}

func TestEvaluateEchoesSignals(t *testing.T) {
	v := New().Evaluate(
		models.ChartSignal{Trend: models.TrendDown, Confidence: 0.7, Volatility: models.Float(0.3)},
		models.MomentumSignal{RSI: models.Float(42)},
		nil,
	)
	require.NotNil(t, v.RSI)
	require.NotNil(t, v.Volatility)
	assert.Equal(t, 42.0, *v.RSI)
	assert.Equal(t, 0.3, *v.Volatility)
}

var (
	trends      = []models.Trend{models.TrendUp, models.TrendDown, models.TrendSideways, models.TrendUnknown}
	confidences = []float64{0, 0.3, 0.59, 0.6, 0.8, 1}
	volatility  = []*float64{nil, models.Float(0), models.Float(0.019), models.Float(0.02), models.Float(0.5)}
	rsis        = []*float64{nil, models.Float(0), models.Float(29.9), models.Float(30), models.Float(50), models.Float(70), models.Float(70.1), models.Float(100)}
	funds       = []*models.FundamentalsSnapshot{
		nil,
		fundamentals(nil, nil),
		fundamentals(models.Float(10), nil),
		fundamentals(nil, models.Float(2)),
		fundamentals(models.Float(40), models.Float(-1)),
		fundamentals(models.Float(25), models.Float(0)),
		fundamentals(models.Float(12), models.Float(3)),
	}
)

// grid calls fn for every combination of the sample inputs.
func grid(fn func(c models.ChartSignal, m models.MomentumSignal, f *models.FundamentalsSnapshot)) {
	for _, tr := range trends {
		for _, conf := range confidences {
			for _, vol := range volatility {
				for _, rsi := range rsis {
					for _, f := range funds {
						fn(models.ChartSignal{Trend: tr, Confidence: conf, Volatility: vol}, models.MomentumSignal{RSI: rsi}, f)
					}
				}
			}
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e := New()
	grid(func(c models.ChartSignal, m models.MomentumSignal, f *models.FundamentalsSnapshot) {
		first := e.Evaluate(c, m, f)
		second := New().Evaluate(c, m, f)
		assert.Equal(t, first, second)
	})
}

func TestVolatilityGuardAlwaysHolds(t *testing.T) {
	e := New()
	grid(func(c models.ChartSignal, m models.MomentumSignal, f *models.FundamentalsSnapshot) {
		if c.Volatility == nil || *c.Volatility >= 0.02 {
			return
		}
		v := e.Evaluate(c, m, f)
		assert.Equal(t, models.ActionHold, v.Action)
		assert.Equal(t, ReasonLowVolatility, v.Reason)
	})
}

func TestOverboughtAlwaysSellsUnlessGuarded(t *testing.T) {
	e := New()
	grid(func(c models.ChartSignal, m models.MomentumSignal, f *models.FundamentalsSnapshot) {
		if m.RSI == nil || *m.RSI <= 70 {
			return
		}
		if c.Volatility != nil && *c.Volatility < 0.02 {
			return
		}
		assert.Equal(t, models.ActionSell, e.Evaluate(c, m, f).Action)
	})
}

func TestNoBuyWithZeroFundamentalScore(t *testing.T) {
	e := New()
	grid(func(c models.ChartSignal, m models.MomentumSignal, f *models.FundamentalsSnapshot) {
		if f == nil || FundamentalScore(f) != 0 {
			return
		}
		assert.NotEqual(t, models.ActionBuy, e.Evaluate(c, m, f).Action)
	})
}

func TestFundamentalsNeverUpgrade(t *testing.T) {
	e := New()
	grid(func(c models.ChartSignal, m models.MomentumSignal, f *models.FundamentalsSnapshot) {
		without := e.Evaluate(c, m, nil)
		withFundamentals := e.Evaluate(c, m, f)
		if without.Action != models.ActionBuy {
			assert.Equal(t, without, withFundamentals)
		}
	})
}

func TestAbsentSignalsReduceToChartRules(t *testing.T) {
	chartOnly := New(WithRules(
		Rule{Name: "chart", Apply: ChartRule},
		Rule{Name: "volatility", Apply: VolatilityGuard},
	))
	e := New()
	grid(func(c models.ChartSignal, _ models.MomentumSignal, _ *models.FundamentalsSnapshot) {
		assert.Equal(t, chartOnly.Evaluate(c, models.MomentumSignal{}, nil), e.Evaluate(c, models.MomentumSignal{}, nil))
	})
}

func TestFundamentalScore(t *testing.T) {
	assert.Equal(t, 0, FundamentalScore(nil))
	assert.Equal(t, 0, FundamentalScore(fundamentals(nil, nil)))
	assert.Equal(t, 0, FundamentalScore(fundamentals(models.Float(25), models.Float(0))))
	assert.Equal(t, 1, FundamentalScore(fundamentals(models.Float(24.9), nil)))
	assert.Equal(t, 1, FundamentalScore(fundamentals(nil, models.Float(0.01))))
	assert.Equal(t, 2, FundamentalScore(fundamentals(models.Float(10), models.Float(1))))
}

func TestCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.MinConfidence = 0.9
	e := New(WithThresholds(th))

	v := e.Evaluate(models.ChartSignal{Trend: models.TrendUp, Confidence: 0.8}, models.MomentumSignal{}, nil)
	assert.Equal(t, models.ActionHold, v.Action)
}

func TestRuleOrder(t *testing.T) {
	assert.Equal(t, []string{"chart", "momentum", "volatility", "fundamentals"}, New().RuleNames())
}
