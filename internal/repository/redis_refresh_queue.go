package repository

import (
	"context"
	"time"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
)

// Enqueuer pushes a typed JSON payload onto a work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// QueueRefreshPublisher implements RefreshRequester over a Redis work queue.
type QueueRefreshPublisher struct {
	q       Enqueuer
	msgType string
	now     func() time.Time
}

// NewQueueRefreshPublisher enqueues refresh requests as msgType.
func NewQueueRefreshPublisher(q Enqueuer, msgType string) *QueueRefreshPublisher {
	return &QueueRefreshPublisher{q: q, msgType: msgType, now: time.Now}
}

func (p *QueueRefreshPublisher) RequestRefresh(ctx context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return domrepo.ErrNoSymbol
	}
	return p.q.Enqueue(ctx, p.msgType, models.FundamentalsRefreshRequest{
		Symbol:      symbol,
		RequestedAt: p.now().Unix(),
	})
}

var _ domrepo.RefreshRequester = (*QueueRefreshPublisher)(nil)
