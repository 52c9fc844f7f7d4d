package fusion

import (
	"ChartVerdict/internal/domain/models"
)

// Baseline echoes the raw signals into a HOLD verdict.
func Baseline(in Inputs) models.Verdict {
	return models.Verdict{
		Action:     models.ActionHold,
		Reason:     ReasonUnclear,
		Trend:      in.Chart.Trend,
		Confidence: in.Chart.Confidence,
		RSI:        copyFloat(in.Momentum.RSI),
		Volatility: copyFloat(in.Chart.Volatility),
	}
}

// ChartRule maps a confident up/down trend to BUY/SELL.
func ChartRule(in Inputs, v models.Verdict) models.Verdict {
	if in.Chart.Confidence < in.Thresholds.MinConfidence {
		return v
	}
	switch in.Chart.Trend {
	case models.TrendUp:
		return with(v, models.ActionBuy, ReasonStrongUptrend)
	case models.TrendDown:
		return with(v, models.ActionSell, ReasonStrongDowntrend)
	}
	return v
}

// MomentumOverride forces SELL when overbought and BUY when oversold, regardless of the chart.
func MomentumOverride(in Inputs, v models.Verdict) models.Verdict {
	rsi := in.Momentum.RSI
	if rsi == nil {
		return v
	}
	switch {
	case *rsi > in.Thresholds.Overbought:
		return with(v, models.ActionSell, ReasonOverbought)
	case *rsi < in.Thresholds.Oversold:
		return with(v, models.ActionBuy, ReasonOversold)
	}
	return v
}

// VolatilityGuard forces HOLD in a flat market; it dominates every directional rule before it.
func VolatilityGuard(in Inputs, v models.Verdict) models.Verdict {
	vol := in.Chart.Volatility
	if vol == nil || *vol >= in.Thresholds.LowVolatility {
		return v
	}
	return with(v, models.ActionHold, ReasonLowVolatility)
}

// FundamentalsVeto downgrades a BUY to HOLD when no fundamental check passes.
// It never upgrades a verdict.
func FundamentalsVeto(in Inputs, v models.Verdict) models.Verdict {
	if in.Fundamentals == nil || v.Action != models.ActionBuy {
		return v
	}
	if ScoreWith(in.Fundamentals, in.Thresholds) > 0 {
		return v
	}
	return with(v, models.ActionHold, ReasonWeakFundamental)
}

// FundamentalScore counts how many of {PE < 25, EPS > 0} hold for the snapshot.
func FundamentalScore(s *models.FundamentalsSnapshot) int {
	return ScoreWith(s, DefaultThresholds())
}

// ScoreWith is FundamentalScore with explicit thresholds.
func ScoreWith(s *models.FundamentalsSnapshot, t Thresholds) int {
	if s == nil {
		return 0
	}
	score := 0
	if s.PERatio != nil && *s.PERatio < t.MaxPE {
		score++
	}
	if s.EPS != nil && *s.EPS > t.MinEPS {
		score++
	}
	return score
}

func with(v models.Verdict, a models.Action, reason string) models.Verdict {
	v.Action = a
	v.Reason = reason
	return v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
