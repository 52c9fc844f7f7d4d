package di

import (
	"context"
	"fmt"
	"time"

	domrepo "ChartVerdict/internal/domain/repository"
	domsvc "ChartVerdict/internal/domain/service"
	"ChartVerdict/internal/handler/api"
	internalrepo "ChartVerdict/internal/repository"
	"ChartVerdict/internal/service/alphavantage"
	"ChartVerdict/internal/service/classifier"
	"ChartVerdict/internal/service/googlenews"
	"ChartVerdict/internal/service/newsapi"
	"ChartVerdict/internal/service/ratelimit"
	"ChartVerdict/internal/service/twelvedata"
	"ChartVerdict/internal/services/fusion"
	"ChartVerdict/internal/services/momentum"
	"ChartVerdict/internal/usecase"
	"ChartVerdict/pkg/cache"
	pkgch "ChartVerdict/pkg/clickhouse"
	"ChartVerdict/pkg/config"
	pkgkafka "ChartVerdict/pkg/kafka"
	applogger "ChartVerdict/pkg/logger"
	"ChartVerdict/pkg/metrics"
	"ChartVerdict/pkg/queue"
	"ChartVerdict/pkg/server"
)

// IndicatorSource serves both daily RSI and EMA.
type IndicatorSource interface {
	domrepo.MomentumProvider
	domrepo.EMAProvider
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideRedisCache connects to Redis when the cache backend or the refresh queue needs it.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if !cfg.UsesRedis() {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.PoolSize/2, 5*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideCache selects the fundamentals cache backend. The Redis connection is closed by ProvideRedisCache.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) (cache.Service, func(), error) {
	switch cfg.Fundamentals.CacheBackend {
	case config.CacheRedis:
		return rc, func() {}, nil
	case config.CacheLayered:
		return cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Fundamentals.L1Size),
			cache.WithLayeredMemoryTTL(cfg.Fundamentals.L1TTL),
		), func() {}, nil
	default:
		mc := cache.NewMemoryCache()
		return mc, func() { _ = mc.Close() }, nil
	}
}

// ProvideRefreshQueue creates the Redis work queue. It is nil unless fundamentals.refresh is redis.
func ProvideRefreshQueue(cfg *config.Config, rc *cache.RedisCache, log *applogger.Logger) *queue.RedisQueue {
	if cfg.Fundamentals.Refresh != config.RefreshRedis || rc == nil {
		return nil
	}
	return queue.NewRedisQueue(log, queue.Config{
		Workers:    cfg.Redis.Queue.Workers,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

// ProvideLocker exposes the cache backend's lock primitives.
func ProvideLocker(store cache.Service) domrepo.Locker {
	return store
}

// ProvideFundamentalsCache stores snapshots in the cache backend.
func ProvideFundamentalsCache(store cache.Service) domrepo.FundamentalsCache {
	return internalrepo.NewFundamentalsCache(store)
}

// ProvideFundamentalsProvider creates the Alpha Vantage OVERVIEW client.
func ProvideFundamentalsProvider(cfg *config.Config) domrepo.FundamentalsProvider {
	return alphavantage.New(cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.APIKey, cfg.AlphaVantage.Timeout)
}

// ProvideFundamentalsRefresher creates the locked fetch-and-replace worker.
func ProvideFundamentalsRefresher(
	cfg *config.Config,
	provider domrepo.FundamentalsProvider,
	fc domrepo.FundamentalsCache,
	locker domrepo.Locker,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.FundamentalsRefresher {
	return usecase.NewFundamentalsRefresher(provider, fc, locker, cfg.Fundamentals.LockTTL, m, log)
}

// ProvideRefreshRequester picks in-process goroutines, the Redis queue or a Kafka topic for refresh requests.
func ProvideRefreshRequester(
	cfg *config.Config,
	refresher *usecase.FundamentalsRefresher,
	q *queue.RedisQueue,
	log *applogger.Logger,
) (domrepo.RefreshRequester, func(), error) {
	switch cfg.Fundamentals.Refresh {
	case config.RefreshKafka:
	case config.RefreshRedis:
		if q == nil {
			return nil, nil, fmt.Errorf("refresh queue: redis is not configured")
		}
		return internalrepo.NewQueueRefreshPublisher(q, cfg.Kafka.RefreshTopic), func() {}, nil
	default:
		r := usecase.NewInlineRefresher(refresher, cfg.Fundamentals.LockTTL, log)
		return r, func() { _ = r.Close() }, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.Producer.AutoCreate),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return internalrepo.NewKafkaRefreshPublisher(producer, cfg.Kafka.RefreshTopic), cleanup, nil
}

// ProvideKafkaConsumer creates the refresh consumer. It is nil unless refresh runs over Kafka.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Fundamentals.Refresh != config.RefreshKafka {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook{}, pkgkafka.LoggingHook{Log: log}))
	return consumer, nil
}

// ProvideRefreshHandler handles refresh requests read from Kafka or the Redis queue.
func ProvideRefreshHandler(cfg *config.Config, refresher *usecase.FundamentalsRefresher, m domrepo.Metrics) server.RefreshHandler {
	return usecase.NewFundamentalsRefreshHandler(cfg.Kafka.RefreshTopic, refresher, m)
}

// ProvideClickHouseClient connects to the candle store. It is nil unless momentum.source is clickhouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Momentum.Source != config.MomentumClickHouse {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.DailyCandleSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideIndicators computes RSI/EMA locally from ClickHouse candles or asks Twelve Data.
func ProvideIndicators(cfg *config.Config, ch *pkgch.Client, log *applogger.Logger) IndicatorSource {
	if cfg.Momentum.Source == config.MomentumClickHouse && ch != nil {
		store := internalrepo.NewCHCandleStore(ch, log)
		return momentum.NewLocalProvider(store, cfg.Momentum.Period, cfg.Momentum.EMAPeriod)
	}
	return twelvedata.New(cfg.TwelveData.BaseURL, cfg.TwelveData.APIKey, cfg.TwelveData.Timeout,
		twelvedata.WithInterval(cfg.TwelveData.Interval),
		twelvedata.WithSymbolSuffix(cfg.TwelveData.SymbolSuffix),
		twelvedata.WithPeriods(cfg.Momentum.Period, cfg.Momentum.EMAPeriod),
	)
}

// ProvideClassifier builds the chart classifier selected by classifier.mode.
func ProvideClassifier(cfg *config.Config, log *applogger.Logger) (domrepo.ChartClassifier, error) {
	c := cfg.Classifier
	switch c.Mode {
	case config.ClassifierRemote:
		if c.RemoteURL == "" {
			return nil, fmt.Errorf("classifier: remote_url is required in remote mode")
		}
		return classifier.NewRemoteClassifier(c.RemoteURL, c.Timeout), nil
	case config.ClassifierStub:
		log.Warn("using stub chart classifier", applogger.String("trend", c.Stub.Trend))
		return classifier.NewStubClassifier(c.Stub.Trend, c.Stub.Confidence, c.Stub.Volatility), nil
	default:
		p, err := classifier.NewProcessClassifier(c.Command, c.Args, c.UploadDir, c.Timeout, log)
		if err != nil {
			return nil, fmt.Errorf("classifier: %w", err)
		}
		return p, nil
	}
}

// ProvideNewsService chains NewsAPI (when keyed) ahead of the Google News scraper.
func ProvideNewsService(cfg *config.Config, m domrepo.Metrics, log *applogger.Logger) *usecase.NewsService {
	var providers []usecase.NamedNewsProvider
	if cfg.NewsAPI.APIKey != "" {
		providers = append(providers, usecase.NamedNewsProvider{
			Name:     "newsapi",
			Provider: newsapi.New(cfg.NewsAPI.BaseURL, cfg.NewsAPI.APIKey, cfg.NewsAPI.Language, cfg.NewsAPI.Timeout),
		})
	}
	if cfg.GoogleNews.Enabled {
		providers = append(providers, usecase.NamedNewsProvider{
			Name:     "googlenews",
			Provider: googlenews.New(cfg.GoogleNews.BaseURL, cfg.GoogleNews.UserAgent, cfg.Analyze.NewsTimeout),
		})
	}
	return usecase.NewNewsService(m, log, providers...)
}

// ProvideFundamentalsService creates the cache-aside fundamentals reader.
func ProvideFundamentalsService(
	cfg *config.Config,
	fc domrepo.FundamentalsCache,
	provider domrepo.FundamentalsProvider,
	refresh domrepo.RefreshRequester,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.FundamentalsService {
	return usecase.NewFundamentalsService(fc, provider, refresh, cfg.Fundamentals.StaleAfter, m, log)
}

// ProvideFusionEngine creates the rule engine with configured thresholds.
func ProvideFusionEngine(cfg *config.Config) domsvc.FusionEngine {
	return fusion.New(fusion.WithThresholds(cfg.Fusion))
}

// ProvideAnalyzeUseCase creates the verdict use case.
func ProvideAnalyzeUseCase(
	cfg *config.Config,
	cls domrepo.ChartClassifier,
	indicators IndicatorSource,
	fundamentals *usecase.FundamentalsService,
	news *usecase.NewsService,
	engine domsvc.FusionEngine,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.AnalyzeUseCase {
	return usecase.NewAnalyzeUseCase(cls, indicators, fundamentals, news, engine, usecase.AnalyzeConfig{
		ChartTimeout:        cfg.Analyze.ChartTimeout,
		MomentumTimeout:     cfg.Analyze.MomentumTimeout,
		FundamentalsTimeout: cfg.Analyze.FundamentalsTimeout,
		NewsTimeout:         cfg.Analyze.NewsTimeout,
		MaxNews:             cfg.Analyze.MaxNews,
	}, m, log)
}

// ProvideTechnicalsUseCase creates the RSI/EMA read use case.
func ProvideTechnicalsUseCase(cfg *config.Config, indicators IndicatorSource, m domrepo.Metrics, log *applogger.Logger) *usecase.TechnicalsUseCase {
	return usecase.NewTechnicalsUseCase(indicators, indicators, cfg.Analyze.MomentumTimeout, m, log)
}

// ProvideRateLimiter creates the per-client limiter. It is nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.Server.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.RPS)
}

// ProvideHandler creates the HTTP handler with health probes for the configured backends.
func ProvideHandler(
	cfg *config.Config,
	log *applogger.Logger,
	analyze *usecase.AnalyzeUseCase,
	technicals *usecase.TechnicalsUseCase,
	fundamentals *usecase.FundamentalsService,
	news *usecase.NewsService,
	limiter *ratelimit.Limiter,
	store cache.Service,
	ch *pkgch.Client,
) *api.ChartEchoHandler {
	opts := []api.Option{
		api.WithMaxUpload(cfg.Analyze.MaxUploadBytes),
		api.WithHealthCheck("cache", func(ctx context.Context) error {
			_, err := store.Exists(ctx, "health")
			return err
		}),
	}
	if limiter != nil {
		opts = append(opts, api.WithRateLimiter(limiter))
	}
	if ch != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", ch.Health))
	}
	return api.NewChartEchoHandler(log, analyze, technicals, fundamentals, news, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler *api.ChartEchoHandler,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	rh server.RefreshHandler,
	refresh domrepo.RefreshRequester,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, log, handler, consumer, q, rh, refresh, limiter)
}
