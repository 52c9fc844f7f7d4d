package repository

import (
	"context"
	"time"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
)

// KafkaRefreshPublisher implements RefreshRequester by publishing refresh
// requests keyed by symbol, so requests for one symbol land on one partition.
type KafkaRefreshPublisher struct {
	pub   domrepo.Publisher
	topic string
	now   func() time.Time
}

// NewKafkaRefreshPublisher creates a refresh publisher on topic.
func NewKafkaRefreshPublisher(pub domrepo.Publisher, topic string) *KafkaRefreshPublisher {
	return &KafkaRefreshPublisher{pub: pub, topic: topic, now: time.Now}
}

func (p *KafkaRefreshPublisher) RequestRefresh(ctx context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return domrepo.ErrNoSymbol
	}
	return p.pub.Publish(ctx, p.topic, []byte(symbol), models.FundamentalsRefreshRequest{
		Symbol:      symbol,
		RequestedAt: p.now().Unix(),
	})
}

// Topic returns the refresh topic name.
func (p *KafkaRefreshPublisher) Topic() string { return p.topic }

var _ domrepo.RefreshRequester = (*KafkaRefreshPublisher)(nil)
