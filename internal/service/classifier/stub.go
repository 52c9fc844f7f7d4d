package classifier

import (
	"context"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
)

// StubClassifier always returns the configured signal. Used for local runs without an analyzer.
type StubClassifier struct {
	signal models.ChartSignal
}

func NewStubClassifier(trend string, confidence float64, volatility *float64) *StubClassifier {
	sig := models.ChartSignal{Trend: models.ParseTrend(trend), Confidence: confidence}
	if volatility != nil {
		sig.Volatility = models.Float(*volatility)
	}
	return &StubClassifier{signal: sig}
}

func (s *StubClassifier) Classify(ctx context.Context, img models.ChartImage) (models.ChartSignal, error) {
	if err := ctx.Err(); err != nil {
		return models.ChartSignal{}, domrepo.NewClassificationError("cancelled", err)
	}
	if len(img.Data) == 0 {
		return models.ChartSignal{}, domrepo.NewClassificationError("empty image", nil)
	}
	return s.signal, nil
}

var _ domrepo.ChartClassifier = (*StubClassifier)(nil)
