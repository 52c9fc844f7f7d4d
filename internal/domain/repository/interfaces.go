package repository

import (
	"context"
	"time"

	"ChartVerdict/internal/domain/models"
)

// ChartClassifier turns a chart image into a trend/confidence/volatility reading.
// Any failure is fatal to the request that asked for it.
type ChartClassifier interface {
	Classify(ctx context.Context, img models.ChartImage) (models.ChartSignal, error)
}

// MomentumProvider returns the latest 14-period daily RSI for a symbol.
type MomentumProvider interface {
	RSI(ctx context.Context, symbol string) (float64, error)
}

// EMAProvider returns the latest daily exponential moving average for a symbol.
type EMAProvider interface {
	EMA(ctx context.Context, symbol string) (float64, error)
}

// FundamentalsProvider fetches a fresh fundamentals snapshot for a symbol.
type FundamentalsProvider interface {
	Fetch(ctx context.Context, symbol string) (models.FundamentalsSnapshot, error)
}

// NewsProvider returns recent headlines for a symbol.
type NewsProvider interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error)
}

// FundamentalsCache holds at most one snapshot per symbol. Put replaces the prior snapshot.
type FundamentalsCache interface {
	Get(ctx context.Context, symbol string) (models.FundamentalsSnapshot, bool, error)
	Put(ctx context.Context, symbol string, snap models.FundamentalsSnapshot) error
}

// RefreshRequester asks the background collaborator to refresh a symbol's fundamentals.
type RefreshRequester interface {
	RequestRefresh(ctx context.Context, symbol string) error
}

// Locker provides best-effort mutual exclusion across instances.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Publisher publishes keyed messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

type Metrics interface {
	RecordCollector(collector, outcome string)
	RecordVerdict(action string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
