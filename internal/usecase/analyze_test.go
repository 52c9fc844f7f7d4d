package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/internal/repository"
	"ChartVerdict/internal/services/fusion"
	"ChartVerdict/pkg/cache"
	"ChartVerdict/pkg/metrics"
)

var chart = models.ChartImage{Filename: "c.png", Data: []byte("png")}

type harness struct {
	classifier     *fakeClassifier
	momentum       *fakeMomentum
	provider       *fakeFundamentals
	news           *fakeNews
	cache          *repository.FundamentalsCache
	metrics        *recordingMetrics
	cfg            AnalyzeConfig
	noMomentum     bool
	noFundamentals bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	return &harness{
		classifier: &fakeClassifier{sig: models.ChartSignal{Trend: models.TrendUp, Confidence: 0.8}},
		momentum:   &fakeMomentum{err: domrepo.ErrNoData},
		provider:   &fakeFundamentals{err: errors.New("alpha vantage down")},
		news:       &fakeNews{},
		cache:      repository.NewFundamentalsCache(mem),
		metrics:    newRecordingMetrics(),
		cfg: AnalyzeConfig{
			ChartTimeout:        time.Second,
			MomentumTimeout:     200 * time.Millisecond,
			FundamentalsTimeout: 200 * time.Millisecond,
			NewsTimeout:         200 * time.Millisecond,
			MaxNews:             5,
		},
	}
}

func (h *harness) build() *AnalyzeUseCase {
	fs := NewFundamentalsService(h.cache, h.provider, nil, 72*time.Hour, h.metrics, nil)
	ns := NewNewsService(h.metrics, nil, NamedNewsProvider{Name: "fake", Provider: h.news})
	var mp domrepo.MomentumProvider = h.momentum
	if h.noMomentum {
		mp = nil
	}
	if h.noFundamentals {
		fs = nil
	}
	return NewAnalyzeUseCase(h.classifier, mp, fs, ns, fusion.New(), h.cfg, h.metrics, nil)
}

func TestAnalyzeScenarios(t *testing.T) {
	t.Run("confident uptrend with nothing else buys", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: " aapl "})
		require.NoError(t, err)
		assert.Equal(t, models.ActionBuy, res.Action)
		assert.Equal(t, fusion.ReasonStrongUptrend, res.Reason)
		assert.Equal(t, "AAPL", res.Symbol)
		assert.Nil(t, res.RSI)
		assert.NotNil(t, res.News)
	})

	t.Run("overbought rsi sells", func(t *testing.T) {
		h := newHarness(t)
		h.momentum = &fakeMomentum{rsi: 75}
		res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
		require.NoError(t, err)
		assert.Equal(t, models.ActionSell, res.Action)
		assert.Equal(t, fusion.ReasonOverbought, res.Reason)
		require.NotNil(t, res.RSI)
		assert.Equal(t, 75.0, *res.RSI)
	})

	t.Run("weak fundamentals veto", func(t *testing.T) {
		h := newHarness(t)
		h.provider = &fakeFundamentals{snap: models.FundamentalsSnapshot{PERatio: models.Float(40), EPS: models.Float(-2), FetchedAt: time.Now()}}
		res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
		require.NoError(t, err)
		assert.Equal(t, models.ActionHold, res.Action)
		assert.Equal(t, fusion.ReasonWeakFundamental, res.Reason)
	})

	t.Run("low volatility holds", func(t *testing.T) {
		h := newHarness(t)
		h.classifier.sig = models.ChartSignal{Trend: models.TrendDown, Confidence: 0.7, Volatility: models.Float(0.01)}
		res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart})
		require.NoError(t, err)
		assert.Equal(t, models.ActionHold, res.Action)
		assert.Equal(t, fusion.ReasonLowVolatility, res.Reason)
		assert.Empty(t, res.Symbol)
	})

	t.Run("chart failure is fatal", func(t *testing.T) {
		h := newHarness(t)
		h.classifier.err = domrepo.NewClassificationError("Image not readable", nil)
		res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
		assert.Nil(t, res)
		var ce *domrepo.ClassificationError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "Image not readable", ce.Reason)
		assert.Contains(t, h.metrics.errors, "classification")
		assert.Empty(t, h.metrics.verdicts)
	})
}

func TestAnalyzeWithoutSymbolSkipsSymbolCollectors(t *testing.T) {
	h := newHarness(t)
	h.momentum = &fakeMomentum{rsi: 80}
	res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "   "})
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, res.Action)
	assert.Equal(t, 0, h.provider.Calls())
	assert.Equal(t, 0, h.news.calls)
	assert.Equal(t, []models.NewsArticle{}, res.News)
}

func TestAnalyzeMomentumTimeoutIsAbsent(t *testing.T) {
	h := newHarness(t)
	h.momentum = &fakeMomentum{rsi: 80, delay: 2 * time.Second}
	h.cfg.MomentumTimeout = 20 * time.Millisecond

	start := time.Now()
	res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, models.ActionBuy, res.Action)
	assert.Nil(t, res.RSI)
	assert.Equal(t, "timeout", h.metrics.Outcome("momentum"))
}

func TestAnalyzeChartTimeout(t *testing.T) {
	h := newHarness(t)
	h.classifier.delay = time.Second
	h.cfg.ChartTimeout = 20 * time.Millisecond

	_, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart})
	var ce *domrepo.ClassificationError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyzeChartFailureCancelsSiblings(t *testing.T) {
	h := newHarness(t)
	h.classifier = &fakeClassifier{err: errors.New("exit status 1"), delay: 20 * time.Millisecond}
	h.momentum = &fakeMomentum{rsi: 50, delay: 2 * time.Second}
	h.cfg.MomentumTimeout = 5 * time.Second

	_, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
	var ce *domrepo.ClassificationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "classifier error", ce.Reason)
	assert.Eventually(t, h.momentum.wasCancelled, time.Second, 10*time.Millisecond)
}

func TestAnalyzeRejectsEmptyImage(t *testing.T) {
	h := newHarness(t)
	_, err := h.build().Analyze(context.Background(), AnalyzeInput{Symbol: "AAPL"})
	var ce *domrepo.ClassificationError
	assert.True(t, errors.As(err, &ce))
}

func TestAnalyzeIgnoresOutOfRangeRSI(t *testing.T) {
	h := newHarness(t)
	h.momentum = &fakeMomentum{rsi: 140}
	res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Nil(t, res.RSI)
	assert.Equal(t, models.ActionBuy, res.Action)
}

func TestAnalyzeDecoratesNews(t *testing.T) {
	h := newHarness(t)
	h.news = &fakeNews{articles: []models.NewsArticle{{Title: "a", URL: "u1"}, {Title: "b", URL: "u2"}}}
	h.cfg.MaxNews = 1
	res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, res.News, 1)
	assert.Equal(t, "a", res.News[0].Title)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	h := newHarness(t)
	h.momentum = &fakeMomentum{rsi: 25}
	h.provider = &fakeFundamentals{snap: models.FundamentalsSnapshot{PERatio: models.Float(15), EPS: models.Float(3), FetchedAt: time.Now()}}
	uc := h.build()

	first, err := uc.Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := uc.Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
		require.NoError(t, err)
		assert.Equal(t, first.Verdict, again.Verdict)
	}
	assert.Equal(t, models.ActionBuy, first.Action)
	assert.Equal(t, fusion.ReasonOversold, first.Reason)
	// the second call is served from cache
	assert.Equal(t, 1, h.provider.Calls())
}

func TestAnalyzeWithNopMetricsAndNoNews(t *testing.T) {
	h := newHarness(t)
	fs := NewFundamentalsService(h.cache, h.provider, nil, time.Hour, metrics.Nop{}, nil)
	uc := NewAnalyzeUseCase(h.classifier, h.momentum, fs, nil, fusion.New(), h.cfg, metrics.Nop{}, nil)

	res, err := uc.Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, []models.NewsArticle{}, res.News)
}

func TestAnalyzeWithoutOptionalCollectors(t *testing.T) {
	h := newHarness(t)
	h.noMomentum = true
	h.noFundamentals = true
	h.classifier.sig = models.ChartSignal{Trend: models.TrendDown, Confidence: 0.9, Volatility: models.Float(0.3)}

	res, err := h.build().Analyze(context.Background(), AnalyzeInput{Image: chart, Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, models.ActionSell, res.Action)
	assert.Equal(t, fusion.ReasonStrongDowntrend, res.Reason)
	assert.Equal(t, 0, h.provider.Calls())
}
