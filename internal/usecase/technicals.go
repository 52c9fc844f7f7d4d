package usecase

import (
	"context"
	"sync"
	"time"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	applogger "ChartVerdict/pkg/logger"
)

// TechnicalsUseCase reads RSI and EMA concurrently. Each is independently optional.
type TechnicalsUseCase struct {
	rsi     domrepo.MomentumProvider
	ema     domrepo.EMAProvider
	timeout time.Duration
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewTechnicalsUseCase(rsi domrepo.MomentumProvider, ema domrepo.EMAProvider, timeout time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *TechnicalsUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	return &TechnicalsUseCase{rsi: rsi, ema: ema, timeout: timeout, metrics: metrics, l: l}
}

func (uc *TechnicalsUseCase) Get(ctx context.Context, symbol string) (models.Technicals, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.Technicals{}, domrepo.ErrNoSymbol
	}
	out := models.Technicals{Symbol: symbol}

	var wg sync.WaitGroup
	read := func(name string, fn func(context.Context, string) (float64, error), dst **float64) {
		defer wg.Done()
		v, err := collect(ctx, uc.metrics, name, uc.timeout, func(ctx context.Context) (float64, error) {
			return fn(ctx, symbol)
		})
		if err != nil {
			uc.l.Warn("indicator unavailable", applogger.String("indicator", name), applogger.String("symbol", symbol), applogger.Error(err))
			return
		}
		*dst = models.Float(v)
	}
	if uc.rsi != nil {
		wg.Add(1)
		go read("rsi", uc.rsi.RSI, &out.RSI)
	}
	if uc.ema != nil {
		wg.Add(1)
		go read("ema", uc.ema.EMA, &out.EMA)
	}
	wg.Wait()
	return out, nil
}
