package usecase

import (
	"context"
	"time"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	applogger "ChartVerdict/pkg/logger"
)

// NamedNewsProvider labels a provider for logs and metrics.
type NamedNewsProvider struct {
	Name     string
	Provider domrepo.NewsProvider
}

// NewsService tries each provider in order and never fails: when every
// provider errors or returns nothing the result is an empty list.
type NewsService struct {
	providers []NamedNewsProvider
	metrics   domrepo.Metrics
	l         *applogger.Logger
}

func NewNewsService(metrics domrepo.Metrics, l *applogger.Logger, providers ...NamedNewsProvider) *NewsService {
	if l == nil {
		l = applogger.Nop()
	}
	ps := make([]NamedNewsProvider, 0, len(providers))
	for _, p := range providers {
		if p.Provider != nil {
			ps = append(ps, p)
		}
	}
	return &NewsService{providers: ps, metrics: metrics, l: l}
}

func (s *NewsService) Headlines(ctx context.Context, symbol string, limit int) []models.NewsArticle {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" || limit <= 0 {
		return []models.NewsArticle{}
	}
	for _, p := range s.providers {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		articles, err := p.Provider.Headlines(ctx, symbol, limit)
		s.metrics.RecordLatency("news_"+p.Name, time.Since(start).Seconds())
		if err != nil {
			s.metrics.RecordCollector("news_"+p.Name, "error")
			s.l.Warn("news provider failed",
				applogger.String("provider", p.Name),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
			continue
		}
		if len(articles) == 0 {
			s.metrics.RecordCollector("news_"+p.Name, "empty")
			continue
		}
		s.metrics.RecordCollector("news_"+p.Name, "ok")
		if len(articles) > limit {
			articles = articles[:limit]
		}
		return articles
	}
	return []models.NewsArticle{}
}
