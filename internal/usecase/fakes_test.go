package usecase

import (
	"context"
	"sync"
	"time"

	"ChartVerdict/internal/domain/models"
)

type fakeClassifier struct {
	sig   models.ChartSignal
	err   error
	delay time.Duration
}

func (f *fakeClassifier) Classify(ctx context.Context, _ models.ChartImage) (models.ChartSignal, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.ChartSignal{}, ctx.Err()
		}
	}
	return f.sig, f.err
}

type fakeMomentum struct {
	rsi   float64
	err   error
	delay time.Duration

	mu        sync.Mutex
	cancelled bool
}

func (f *fakeMomentum) RSI(ctx context.Context, _ string) (float64, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			f.mu.Lock()
			f.cancelled = true
			f.mu.Unlock()
			return 0, ctx.Err()
		}
	}
	return f.rsi, f.err
}

func (f *fakeMomentum) EMA(ctx context.Context, s string) (float64, error) {
	return f.RSI(ctx, s)
}

func (f *fakeMomentum) wasCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

type fakeFundamentals struct {
	mu    sync.Mutex
	snap  models.FundamentalsSnapshot
	err   error
	calls int
	block chan struct{}
}

func (f *fakeFundamentals) Fetch(ctx context.Context, symbol string) (models.FundamentalsSnapshot, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return models.FundamentalsSnapshot{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	s := f.snap
	s.Symbol = symbol
	return s, f.err
}

func (f *fakeFundamentals) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNews struct {
	articles []models.NewsArticle
	err      error
	calls    int
}

func (f *fakeNews) Headlines(_ context.Context, _ string, limit int) ([]models.NewsArticle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

type recordingRequester struct {
	mu      sync.Mutex
	symbols []string
	err     error
}

func (r *recordingRequester) RequestRefresh(_ context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols = append(r.symbols, symbol)
	return r.err
}

func (r *recordingRequester) Symbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.symbols...)
}

type recordingMetrics struct {
	mu         sync.Mutex
	collectors map[string]string
	verdicts   []string
	errors     []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{collectors: map[string]string{}}
}

func (m *recordingMetrics) RecordCollector(collector, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectors[collector] = outcome
}

func (m *recordingMetrics) RecordVerdict(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts = append(m.verdicts, action)
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

func (m *recordingMetrics) Outcome(collector string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectors[collector]
}
