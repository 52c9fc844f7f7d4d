package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/internal/service/ratelimit"
	"ChartVerdict/internal/usecase"
	"ChartVerdict/pkg/config"
	xhttp "ChartVerdict/pkg/http"
	pkgkafka "ChartVerdict/pkg/kafka"
	applogger "ChartVerdict/pkg/logger"
	"ChartVerdict/pkg/queue"
)

// RefreshHandler consumes fundamentals refresh requests from either transport.
type RefreshHandler interface {
	pkgkafka.MessageHandler
	queue.Job
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	consumer    *pkgkafka.Consumer
	queue       *queue.RedisQueue
	rh          RefreshHandler
	refresh     domrepo.RefreshRequester
	limiter     *ratelimit.Limiter
}

// New creates a new App. consumer, q and limiter may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	rh RefreshHandler,
	refresh domrepo.RefreshRequester,
	limiter *ratelimit.Limiter,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:         cfg,
		log:         log,
		httpHandler: httpHandler,
		consumer:    consumer,
		queue:       q,
		rh:          rh,
		refresh:     refresh,
		limiter:     limiter,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(a.log),
	)

	if a.consumer != nil && a.rh != nil {
		a.consumer.RegisterHandler(a.rh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.rh.Topic()))
	}

	if a.queue != nil && a.rh != nil {
		a.queue.RegisterJob(a.rh)
		if err := a.queue.Start(); err != nil {
			a.log.Error("refresh queue start error", applogger.Error(err))
			return err
		}
	}

	if a.limiter != nil {
		go a.limiter.Run(ctx, time.Minute, 10*time.Minute)
	}

	if len(a.cfg.Fundamentals.WarmSymbols) > 0 && a.refresh != nil {
		usecase.WarmFundamentals(ctx, a.refresh, a.cfg.Fundamentals.WarmSymbols, a.log)
		a.log.Info("fundamentals warm-up requested", applogger.Strings("symbols", a.cfg.Fundamentals.WarmSymbols))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then background work.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("refresh queue stop error", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
	return nil
}
