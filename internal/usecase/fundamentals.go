package usecase

import (
	"context"
	"fmt"
	"time"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	applogger "ChartVerdict/pkg/logger"
)

// FundamentalsService serves snapshots cache-aside. A miss is fetched and
// stored synchronously; a stale hit is served as-is and a refresh is requested.
type FundamentalsService struct {
	cache      domrepo.FundamentalsCache
	provider   domrepo.FundamentalsProvider
	refresh    domrepo.RefreshRequester
	staleAfter time.Duration
	metrics    domrepo.Metrics
	l          *applogger.Logger
	now        func() time.Time
}

func NewFundamentalsService(cache domrepo.FundamentalsCache, provider domrepo.FundamentalsProvider, refresh domrepo.RefreshRequester, staleAfter time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *FundamentalsService {
	if l == nil {
		l = applogger.Nop()
	}
	return &FundamentalsService{
		cache:      cache,
		provider:   provider,
		refresh:    refresh,
		staleAfter: staleAfter,
		metrics:    metrics,
		l:          l,
		now:        time.Now,
	}
}

// Get returns the current snapshot for symbol.
func (s *FundamentalsService) Get(ctx context.Context, symbol string) (models.FundamentalsSnapshot, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.FundamentalsSnapshot{}, domrepo.ErrNoSymbol
	}

	snap, ok, err := s.cache.Get(ctx, symbol)
	if err != nil {
		// a broken cache must not hide the provider
		s.l.Warn("fundamentals cache read failed", applogger.String("symbol", symbol), applogger.Error(err))
		s.metrics.RecordError("fundamentals_cache")
	}
	if ok {
		if snap.Stale(s.now(), s.staleAfter) {
			s.metrics.RecordCollector("fundamentals_cache", "stale")
			s.requestRefresh(ctx, symbol)
		} else {
			s.metrics.RecordCollector("fundamentals_cache", "hit")
		}
		return snap, nil
	}
	s.metrics.RecordCollector("fundamentals_cache", "miss")

	snap, err = s.provider.Fetch(ctx, symbol)
	if err != nil {
		return models.FundamentalsSnapshot{}, fmt.Errorf("fetch fundamentals %s: %w", symbol, err)
	}
	snap.Symbol = symbol
	if err := s.cache.Put(ctx, symbol, snap); err != nil {
		s.l.Warn("fundamentals cache write failed", applogger.String("symbol", symbol), applogger.Error(err))
		s.metrics.RecordError("fundamentals_cache")
	}
	return snap, nil
}

func (s *FundamentalsService) requestRefresh(ctx context.Context, symbol string) {
	if s.refresh == nil {
		return
	}
	// the request context may be cancelled as soon as the verdict is written
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.refresh.RequestRefresh(rctx, symbol); err != nil {
		s.l.Warn("fundamentals refresh request failed", applogger.String("symbol", symbol), applogger.Error(err))
		s.metrics.RecordError("fundamentals_refresh_request")
	}
}
