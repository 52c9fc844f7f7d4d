package repository

import (
	"context"

	"ChartVerdict/internal/domain/models"
)

// CandleStore provides read-only access to daily candles for local indicator computation.
type CandleStore interface {
	GetLatestNDaily(ctx context.Context, symbol string, n int) ([]models.Candle, error)
}
