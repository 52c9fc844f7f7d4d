//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ChartVerdict/pkg/config"
	applogger "ChartVerdict/pkg/logger"
	"ChartVerdict/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config, log *applogger.Logger) (*server.App, func(), error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideRefreshQueue,
		ProvideClickHouseClient,
		ProvideKafkaConsumer,

		// Repositories and upstream clients
		ProvideLocker,
		ProvideFundamentalsCache,
		ProvideFundamentalsProvider,
		ProvideIndicators,
		ProvideClassifier,

		// Fundamentals refresh
		ProvideFundamentalsRefresher,
		ProvideRefreshRequester,
		ProvideRefreshHandler,

		// Use cases
		ProvideNewsService,
		ProvideFundamentalsService,
		ProvideFusionEngine,
		ProvideAnalyzeUseCase,
		ProvideTechnicalsUseCase,

		// HTTP
		ProvideRateLimiter,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
