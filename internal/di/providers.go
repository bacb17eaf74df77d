package di

import (
	"context"
	"fmt"
	"time"

	drepo "FundSignal/internal/domain/repository"
	"FundSignal/internal/handler/api"
	"FundSignal/internal/repository"
	"FundSignal/internal/service/eastmoney"
	"FundSignal/internal/service/fetcher"
	"FundSignal/internal/service/mailer"
	"FundSignal/internal/service/ratelimit"
	"FundSignal/internal/signal"
	"FundSignal/internal/usecase"
	"FundSignal/pkg/cache"
	pkgch "FundSignal/pkg/clickhouse"
	"FundSignal/pkg/config"
	xhttp "FundSignal/pkg/http"
	pkgkafka "FundSignal/pkg/kafka"
	applogger "FundSignal/pkg/logger"
	"FundSignal/pkg/metrics"
	"FundSignal/pkg/queue"
	"FundSignal/pkg/server"
	"FundSignal/pkg/util"

	"github.com/prometheus/client_golang/prometheus"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() drepo.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideRedisCache connects to Redis, or returns nil when redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache creates an in-memory cache, or a memory L1 in front of Redis.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Redis.L1Size))
	}
	return cache.NewLayeredCache(rc, cfg.Redis.L1Size, 5*time.Minute)
}

// ProvideJobQueue creates the report run queue on the shared Redis connection,
// or nil when redis is disabled.
func ProvideJobQueue(cfg *config.Config, rc *cache.RedisCache, log *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(log, rc.Client(), queue.Config{
		Workers:    cfg.Redis.Queue.Workers,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
		KeyPrefix:  cfg.Redis.Prefix + ":queue",
	})
}

// ProvideHTTPClient creates the client used for the upstream data source.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Source.Timeout),
		xhttp.WithHeader("User-Agent", userAgent),
	)
}

// ProvideSourceLimiter paces requests to the data source per host.
func ProvideSourceLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(float64(cfg.Source.Burst), cfg.Source.RatePerSec)
}

// ProvideSeriesFetcher composes trend and history sources with retry,
// fallback and a per-day cache.
func ProvideSeriesFetcher(
	cfg *config.Config,
	client *xhttp.Client,
	limiter *ratelimit.Limiter,
	c cache.Service,
	log *applogger.Logger,
) drepo.SeriesFetcher {
	loc := cfg.Location()
	trend := eastmoney.NewTrendFetcher(client, limiter, cfg.Source.TrendURL, loc)
	history := eastmoney.NewHistoryFetcher(client, limiter, cfg.Source.HistoryURL,
		cfg.Source.HistoryPageSize, cfg.Source.HistoryMaxPages)

	chain := fetcher.NewFallback(log,
		fetcher.NewRetry(trend, cfg.Source.MaxRetries, cfg.Source.RetryBase, log),
		fetcher.NewRetry(history, cfg.Source.MaxRetries, cfg.Source.RetryBase, log),
	)
	if cfg.Source.CacheTTL <= 0 {
		return chain
	}
	day := func() string { return util.FormatDate(util.Today(loc)) }
	return fetcher.NewCaching(chain, c, cfg.Source.CacheTTL, day, log)
}

// ProvideFundDirectory creates the lazily loaded fund directory.
func ProvideFundDirectory(cfg *config.Config, client *xhttp.Client, limiter *ratelimit.Limiter) drepo.FundDirectory {
	return eastmoney.NewDirectory(client, limiter, cfg.Source.DirectoryURL)
}

// ProvideAnalyzer creates the per-fund analysis use case.
func ProvideAnalyzer(
	cfg *config.Config,
	f drepo.SeriesFetcher,
	dir drepo.FundDirectory,
	m drepo.Metrics,
	log *applogger.Logger,
) *usecase.Analyzer {
	th := signal.Thresholds{
		RSIOversold:   cfg.Signal.RSIOversold,
		RSIOverbought: cfg.Signal.RSIOverbought,
		MACDLower:     cfg.Signal.MACDLower,
		MACDUpper:     cfg.Signal.MACDUpper,
		CCILower:      cfg.Signal.CCILower,
		CCIUpper:      cfg.Signal.CCIUpper,
	}
	return usecase.NewAnalyzer(f, dir, th, m, log)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
// Error logs are shipped to log.collect_topic through the same producer.
func ProvideKafkaProducer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Log.CollectTopic != "" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Log.CollectTopic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSignalStore creates the signal table if needed, or returns nil when
// ClickHouse is disabled.
func ProvideSignalStore(cfg *config.Config, client *pkgch.Client, log *applogger.Logger) (*repository.ClickHouseSignalStore, error) {
	if client == nil {
		return nil, nil
	}
	store, err := repository.NewClickHouseSignalStore(client, cfg.ClickHouse.Table, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, store.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideNotifier creates the SMTP mailer, or nil when mail is disabled.
func ProvideNotifier(cfg *config.Config, log *applogger.Logger) drepo.ReportNotifier {
	if !cfg.SMTP.Enabled {
		return nil
	}
	return mailer.New(mailer.Config{
		Server:     cfg.SMTP.Server,
		Port:       cfg.SMTP.Port,
		User:       cfg.SMTP.User,
		Password:   cfg.SMTP.Password,
		Recipients: cfg.SMTP.Recipients,
	}, log)
}

// ProvideSignalsHandler creates the HTTP API handler with a per-client limiter.
func ProvideSignalsHandler(
	cfg *config.Config,
	analyzer *usecase.Analyzer,
	q *queue.RedisQueue,
	store *repository.ClickHouseSignalStore,
	log *applogger.Logger,
) *api.SignalsHandler {
	loc := cfg.Location()
	today := func() string { return util.FormatDate(util.Today(loc)) }
	var runs queue.Enqueuer
	if q != nil {
		runs = q
	}
	h := api.NewSignalsHandler(log, analyzer, ratelimit.New(10, 2), today, cfg.Report.RetentionDays, runs)
	if store != nil {
		h.WithStore(store)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	analyzer *usecase.Analyzer,
	c cache.Service,
	m drepo.Metrics,
	notifier drepo.ReportNotifier,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	store *repository.ClickHouseSignalStore,
	q *queue.RedisQueue,
	handler *api.SignalsHandler,
) *server.App {
	return server.New(cfg, log, analyzer, c, m, notifier, producer, chClient, store, q, handler)
}
