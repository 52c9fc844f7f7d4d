package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	domsvc "ChartVerdict/internal/domain/service"
	applogger "ChartVerdict/pkg/logger"
	"ChartVerdict/pkg/trace"
)

// AnalyzeConfig bounds each collector and the news decoration.
type AnalyzeConfig struct {
	ChartTimeout        time.Duration
	MomentumTimeout     time.Duration
	FundamentalsTimeout time.Duration
	NewsTimeout         time.Duration
	MaxNews             int
}

// AnalyzeInput is one chart upload with an optional ticker.
type AnalyzeInput struct {
	Image  models.ChartImage
	Symbol string
}

// AnalyzeUseCase collects the signals for one chart and fuses them into a verdict.
type AnalyzeUseCase struct {
	classifier   domrepo.ChartClassifier
	momentum     domrepo.MomentumProvider
	fundamentals *FundamentalsService
	news         *NewsService
	engine       domsvc.FusionEngine
	cfg          AnalyzeConfig
	metrics      domrepo.Metrics
	l            *applogger.Logger
}

func NewAnalyzeUseCase(
	classifier domrepo.ChartClassifier,
	momentum domrepo.MomentumProvider,
	fundamentals *FundamentalsService,
	news *NewsService,
	engine domsvc.FusionEngine,
	cfg AnalyzeConfig,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *AnalyzeUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	return &AnalyzeUseCase{
		classifier:   classifier,
		momentum:     momentum,
		fundamentals: fundamentals,
		news:         news,
		engine:       engine,
		cfg:          cfg,
		metrics:      metrics,
		l:            l,
	}
}

// Analyze classifies the chart while the symbol collectors run, then fuses.
// Only a chart failure is fatal; it is returned as *ClassificationError.
func (uc *AnalyzeUseCase) Analyze(ctx context.Context, in AnalyzeInput) (res *models.Analysis, err error) {
	start := time.Now()
	symbol := models.NormalizeSymbol(in.Symbol)

	ctx, span := trace.StartSpan(ctx, "analyze", trace.WithAttributes(attribute.String("symbol", symbol)))
	defer func() {
		trace.End(span, err)
		uc.metrics.RecordLatency("analyze", time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	if symbol != "" {
		if uc.momentum != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := collect(ctx, uc.metrics, "momentum", uc.cfg.MomentumTimeout, func(ctx context.Context) (float64, error) {
					return uc.momentum.RSI(ctx, symbol)
				})
				ch <- item{"momentum", v, err}
			}()
		}
		if uc.fundamentals != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := collect(ctx, uc.metrics, "fundamentals", uc.cfg.FundamentalsTimeout, func(ctx context.Context) (models.FundamentalsSnapshot, error) {
					return uc.fundamentals.Get(ctx, symbol)
				})
				ch <- item{"fundamentals", v, err}
			}()
		}
		if uc.news != nil && uc.cfg.MaxNews > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := collect(ctx, uc.metrics, "news", uc.cfg.NewsTimeout, func(ctx context.Context) ([]models.NewsArticle, error) {
					return uc.news.Headlines(ctx, symbol, uc.cfg.MaxNews), nil
				})
				ch <- item{"news", v, err}
			}()
		}
	}
	go func() { wg.Wait(); close(ch) }()

	chart, err := uc.classify(ctx, in.Image)
	if err != nil {
		cancel()
		uc.metrics.RecordError("classification")
		uc.l.Warn("chart classification failed", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, err
	}

	var (
		momentum     models.MomentumSignal
		fundamentals *models.FundamentalsSnapshot
		news         = []models.NewsArticle{}
	)
	for it := range ch {
		if it.err != nil {
			uc.l.Warn("signal unavailable",
				applogger.String("collector", it.name),
				applogger.String("symbol", symbol),
				applogger.Error(it.err),
			)
			continue
		}
		switch it.name {
		case "momentum":
			rsi := it.val.(float64)
			if math.IsNaN(rsi) || rsi < 0 || rsi > 100 {
				uc.l.Warn("rsi out of range", applogger.String("symbol", symbol), applogger.Float64("rsi", rsi))
				continue
			}
			momentum.RSI = models.Float(rsi)
		case "fundamentals":
			v := it.val.(models.FundamentalsSnapshot)
			fundamentals = &v
		case "news":
			if v := it.val.([]models.NewsArticle); v != nil {
				news = v
			}
		}
	}

	verdict := uc.engine.Evaluate(chart, momentum, fundamentals)
	uc.metrics.RecordVerdict(string(verdict.Action))
	uc.l.Info("verdict",
		applogger.String("symbol", symbol),
		applogger.String("action", string(verdict.Action)),
		applogger.String("trend", string(verdict.Trend)),
		applogger.Bool("momentum", momentum.RSI != nil),
		applogger.Bool("fundamentals", fundamentals != nil),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return &models.Analysis{Verdict: verdict, Symbol: symbol, News: news}, nil
}

func (uc *AnalyzeUseCase) classify(ctx context.Context, img models.ChartImage) (models.ChartSignal, error) {
	if len(img.Data) == 0 {
		return models.ChartSignal{}, domrepo.NewClassificationError("no chart image", nil)
	}
	sig, err := collect(ctx, uc.metrics, "chart", uc.cfg.ChartTimeout, func(ctx context.Context) (models.ChartSignal, error) {
		return uc.classifier.Classify(ctx, img)
	})
	if err != nil {
		var ce *domrepo.ClassificationError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			if errors.As(err, &ce) {
				return models.ChartSignal{}, ce
			}
			return models.ChartSignal{}, domrepo.NewClassificationError("timeout", err)
		case errors.As(err, &ce):
			return models.ChartSignal{}, ce
		default:
			return models.ChartSignal{}, domrepo.NewClassificationError("classifier error", err)
		}
	}
	if sig.Confidence < 0 || sig.Confidence > 1 || math.IsNaN(sig.Confidence) {
		return models.ChartSignal{}, domrepo.NewClassificationError("invalid output", fmt.Errorf("confidence %v out of range", sig.Confidence))
	}
	return sig, nil
}
