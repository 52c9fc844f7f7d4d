package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/internal/repository"
	pkgkafka "ChartVerdict/pkg/kafka"
	applogger "ChartVerdict/pkg/logger"
	"ChartVerdict/pkg/queue"
)

// FundamentalsRefresher replaces a symbol's cached snapshot with a fresh fetch.
// Only one instance refreshes a symbol at a time.
type FundamentalsRefresher struct {
	provider domrepo.FundamentalsProvider
	cache    domrepo.FundamentalsCache
	locker   domrepo.Locker
	lockTTL  time.Duration
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

func NewFundamentalsRefresher(provider domrepo.FundamentalsProvider, cache domrepo.FundamentalsCache, locker domrepo.Locker, lockTTL time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *FundamentalsRefresher {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &FundamentalsRefresher{provider: provider, cache: cache, locker: locker, lockTTL: lockTTL, metrics: metrics, l: l}
}

// Refresh fetches and stores symbol's fundamentals. Lock contention is not an error.
func (r *FundamentalsRefresher) Refresh(ctx context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return domrepo.ErrNoSymbol
	}
	key := repository.FundamentalsLockKey(symbol)
	ok, err := r.locker.TryLock(ctx, key, r.lockTTL)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		r.l.Debug("fundamentals refresh already running", applogger.String("symbol", symbol))
		r.metrics.RecordCollector("fundamentals_refresh", "skipped")
		return nil
	}
	defer func() {
		if err := r.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			r.l.Warn("fundamentals unlock failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}()

	start := time.Now()
	snap, err := r.provider.Fetch(ctx, symbol)
	r.metrics.RecordLatency("fundamentals_refresh", time.Since(start).Seconds())
	if err != nil {
		r.metrics.RecordCollector("fundamentals_refresh", "error")
		return fmt.Errorf("refresh fundamentals %s: %w", symbol, err)
	}
	if err := r.cache.Put(ctx, symbol, snap); err != nil {
		r.metrics.RecordCollector("fundamentals_refresh", "error")
		return err
	}
	r.metrics.RecordCollector("fundamentals_refresh", "ok")
	r.l.Info("fundamentals refreshed", applogger.String("symbol", symbol))
	return nil
}

// WarmFundamentals requests a refresh for each symbol, logging failures.
func WarmFundamentals(ctx context.Context, req domrepo.RefreshRequester, symbols []string, l *applogger.Logger) {
	if l == nil {
		l = applogger.Nop()
	}
	for _, s := range symbols {
		if err := req.RequestRefresh(ctx, s); err != nil {
			l.Warn("warm fundamentals failed", applogger.String("symbol", s), applogger.Error(err))
		}
	}
}

// InlineRefresher runs refreshes on background goroutines within this process.
type InlineRefresher struct {
	refresher *FundamentalsRefresher
	timeout   time.Duration
	l         *applogger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewInlineRefresher(refresher *FundamentalsRefresher, timeout time.Duration, l *applogger.Logger) *InlineRefresher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &InlineRefresher{
		refresher: refresher,
		timeout:   timeout,
		l:         l,
		inflight:  make(map[string]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// RequestRefresh schedules a refresh and returns immediately.
// A request for a symbol already being refreshed here is dropped.
func (r *InlineRefresher) RequestRefresh(_ context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return domrepo.ErrNoSymbol
	}
	r.mu.Lock()
	if r.ctx.Err() != nil {
		r.mu.Unlock()
		return fmt.Errorf("refresher closed")
	}
	if _, busy := r.inflight[symbol]; busy {
		r.mu.Unlock()
		return nil
	}
	r.inflight[symbol] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.inflight, symbol)
			r.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
		if err := r.refresher.Refresh(ctx, symbol); err != nil {
			r.l.Warn("background fundamentals refresh failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}()
	return nil
}

// Close cancels running refreshes and waits for them to exit.
func (r *InlineRefresher) Close() error {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

// FundamentalsRefreshHandler consumes refresh requests from Kafka or the Redis queue.
type FundamentalsRefreshHandler struct {
	topic     string
	refresher *FundamentalsRefresher
	metrics   domrepo.Metrics
}

func NewFundamentalsRefreshHandler(topic string, refresher *FundamentalsRefresher, metrics domrepo.Metrics) *FundamentalsRefreshHandler {
	return &FundamentalsRefreshHandler{topic: topic, refresher: refresher, metrics: metrics}
}

func (h *FundamentalsRefreshHandler) Topic() string { return h.topic }

// Type is the queue message type; it matches the Kafka topic name.
func (h *FundamentalsRefreshHandler) Type() string { return h.topic }

// Handle decodes {symbol, requestedAt} and refreshes the symbol.
func (h *FundamentalsRefreshHandler) Handle(ctx context.Context, b []byte) error {
	var req models.FundamentalsRefreshRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode refresh request: %w", err)
	}
	if req.RequestedAt > 0 {
		h.metrics.RecordLatency("refresh_queue_delay", time.Since(time.Unix(req.RequestedAt, 0)).Seconds())
	}
	return h.refresher.Refresh(ctx, req.Symbol)
}

var (
	_ domrepo.RefreshRequester = (*InlineRefresher)(nil)
	_ pkgkafka.MessageHandler  = (*FundamentalsRefreshHandler)(nil)
	_ queue.Job                = (*FundamentalsRefreshHandler)(nil)
)
