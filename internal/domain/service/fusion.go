package service

import (
	"ChartVerdict/internal/domain/models"
)

// FusionEngine reconciles the collected signals into one verdict. Implementations must be pure:
// the same inputs always yield the same verdict.
type FusionEngine interface {
	Evaluate(chart models.ChartSignal, momentum models.MomentumSignal, fundamentals *models.FundamentalsSnapshot) models.Verdict
}
