package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"ChartVerdict/internal/di"
	"ChartVerdict/pkg/config"
	applogger "ChartVerdict/pkg/logger"
	"ChartVerdict/pkg/trace"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	if err := trace.Init(trace.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
	}); err != nil {
		logger.Warn("tracing disabled", applogger.Error(err))
	}

	logger.Info("starting",
		applogger.String("env", cfg.Environment),
		applogger.String("classifier", cfg.Classifier.Mode),
		applogger.String("momentum", cfg.Momentum.Source),
		applogger.String("cache", cfg.Fundamentals.CacheBackend),
		applogger.String("refresh", cfg.Fundamentals.Refresh),
	)

	app, cleanup, err := di.InitializeApp(cfg, logger)
	if err != nil {
		logger.Error("app initialization failed", applogger.Error(err))
		os.Exit(1)
	}

	runErr := app.Run()
	cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := trace.Shutdown(ctx); err != nil {
		logger.Warn("trace shutdown error", applogger.Error(err))
	}

	if runErr != nil {
		logger.Error("app error", applogger.Error(runErr))
		os.Exit(1)
	}
}
