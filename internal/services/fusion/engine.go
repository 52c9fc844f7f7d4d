package fusion

import (
	"ChartVerdict/internal/domain/models"
	domsvc "ChartVerdict/internal/domain/service"
)

const (
	ReasonUnclear         = "Market conditions are unclear"
	ReasonStrongUptrend   = "Strong uptrend detected from chart pattern"
	ReasonStrongDowntrend = "Strong downtrend detected from chart pattern"
	ReasonOverbought      = "RSI indicates overbought conditions"
	ReasonOversold        = "RSI indicates oversold conditions"
	ReasonLowVolatility   = "Low volatility, unclear direction"
	ReasonWeakFundamental = "Technical signals positive, but fundamentals are weak"
)

// Thresholds parameterise the override rules.
type Thresholds struct {
	MinConfidence float64 `yaml:"min_confidence" default:"0.6"`
	LowVolatility float64 `yaml:"low_volatility" default:"0.02"`
	Overbought    float64 `yaml:"overbought" default:"70"`
	Oversold      float64 `yaml:"oversold" default:"30"`
	MaxPE         float64 `yaml:"max_pe" default:"25"`
	MinEPS        float64 `yaml:"min_eps" default:"0"`
}

// DefaultThresholds returns the canonical rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence: 0.6,
		LowVolatility: 0.02,
		Overbought:    70,
		Oversold:      30,
		MaxPE:         25,
		MinEPS:        0,
	}
}

// Inputs is everything a rule may look at.
type Inputs struct {
	Chart        models.ChartSignal
	Momentum     models.MomentumSignal
	Fundamentals *models.FundamentalsSnapshot
	Thresholds   Thresholds
}

// Rule transforms the current verdict. Later rules may override earlier ones, never the reverse.
type Rule struct {
	Name  string
	Apply func(in Inputs, v models.Verdict) models.Verdict
}

// Engine applies an ordered rule pipeline to a HOLD baseline.
type Engine struct {
	rules      []Rule
	thresholds Thresholds
}

// Option configures Engine.
type Option func(*Engine)

// WithThresholds overrides the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// WithRules replaces the rule pipeline.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// New builds an engine with the canonical precedence:
// chart rule, momentum override, volatility guard, fundamentals veto.
func New(opts ...Option) *Engine {
	e := &Engine{
		rules:      DefaultRules(),
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultRules returns the canonical ordered rule list.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "chart", Apply: ChartRule},
		{Name: "momentum", Apply: MomentumOverride},
		{Name: "volatility", Apply: VolatilityGuard},
		{Name: "fundamentals", Apply: FundamentalsVeto},
	}
}

// Evaluate fuses the signals into a verdict. It has no side effects.
func (e *Engine) Evaluate(chart models.ChartSignal, momentum models.MomentumSignal, fundamentals *models.FundamentalsSnapshot) models.Verdict {
	in := Inputs{
		Chart:        chart,
		Momentum:     momentum,
		Fundamentals: fundamentals,
		Thresholds:   e.thresholds,
	}
	v := Baseline(in)
	for _, r := range e.rules {
		v = r.Apply(in, v)
	}
	return v
}

// RuleNames lists the pipeline in evaluation order.
func (e *Engine) RuleNames() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name)
	}
	return names
}

var _ domsvc.FusionEngine = (*Engine)(nil)
