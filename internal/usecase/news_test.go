package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartVerdict/internal/domain/models"
)

func TestNewsServiceFallsBack(t *testing.T) {
	primary := &fakeNews{err: errors.New("apiKeyMissing")}
	fallback := &fakeNews{articles: []models.NewsArticle{{Title: "a"}, {Title: "b"}, {Title: "c"}}}
	m := newRecordingMetrics()
	svc := NewNewsService(m, nil,
		NamedNewsProvider{Name: "newsapi", Provider: primary},
		NamedNewsProvider{Name: "googlenews", Provider: fallback},
	)

	got := svc.Headlines(context.Background(), "aapl", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "error", m.Outcome("news_newsapi"))
	assert.Equal(t, "ok", m.Outcome("news_googlenews"))
}

func TestNewsServiceEmptyPrimaryFallsThrough(t *testing.T) {
	fallback := &fakeNews{articles: []models.NewsArticle{{Title: "x"}}}
	svc := NewNewsService(newRecordingMetrics(), nil,
		NamedNewsProvider{Name: "newsapi", Provider: &fakeNews{}},
		NamedNewsProvider{Name: "googlenews", Provider: fallback},
	)
	assert.Len(t, svc.Headlines(context.Background(), "AAPL", 5), 1)
}

func TestNewsServiceNeverFails(t *testing.T) {
	svc := NewNewsService(newRecordingMetrics(), nil,
		NamedNewsProvider{Name: "newsapi", Provider: &fakeNews{err: errors.New("down")}},
		NamedNewsProvider{Name: "none", Provider: nil},
	)
	got := svc.Headlines(context.Background(), "AAPL", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, svc.Headlines(context.Background(), "", 5))
	assert.Empty(t, svc.Headlines(context.Background(), "AAPL", 0))
}

func TestTechnicals(t *testing.T) {
	uc := NewTechnicalsUseCase(&fakeMomentum{rsi: 42}, &fakeMomentum{err: errors.New("ema down")}, time.Second, newRecordingMetrics(), nil)

	got, err := uc.Get(context.Background(), "tsla")
	require.NoError(t, err)
	assert.Equal(t, "TSLA", got.Symbol)
	require.NotNil(t, got.RSI)
	assert.Equal(t, 42.0, *got.RSI)
	assert.Nil(t, got.EMA)

	_, err = uc.Get(context.Background(), " ")
	assert.Error(t, err)
}

func TestTechnicalsWithoutEMAProvider(t *testing.T) {
	uc := NewTechnicalsUseCase(&fakeMomentum{rsi: 55}, nil, time.Second, newRecordingMetrics(), nil)
	got, err := uc.Get(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.NotNil(t, got.RSI)
	assert.Nil(t, got.EMA)
}
