package di

import (
	"context"
	"fmt"
	"time"

	"CoinSink/internal/domain/repository"
	"CoinSink/internal/handler/api"
	internalrepo "CoinSink/internal/repository"
	"CoinSink/internal/rawstore"
	"CoinSink/internal/service/coingecko"
	"CoinSink/internal/usecase"
	"CoinSink/pkg/cache"
	pkgch "CoinSink/pkg/clickhouse"
	"CoinSink/pkg/config"
	pkgduckdb "CoinSink/pkg/duckdb"
	xhttp "CoinSink/pkg/http"
	pkgkafka "CoinSink/pkg/kafka"
	"CoinSink/pkg/logger"
	"CoinSink/pkg/metrics"
	"CoinSink/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache backend named in config.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "redis":
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

// ProvideRawStore creates the raw snapshot archive.
func ProvideRawStore(cfg *config.Config) (repository.RawStore, error) {
	return rawstore.NewFileStore(cfg.Ingest.RawDir)
}

// ProvideSnapshotRepository creates the storage backend named in config and
// initializes its schema.
func ProvideSnapshotRepository(cfg *config.Config, log *logger.Logger) (repository.SnapshotRepository, error) {
	var (
		repo repository.SnapshotRepository
		err  error
	)

	switch cfg.Storage.Backend {
	case "duckdb":
		var client *pkgduckdb.Client
		client, err = pkgduckdb.NewClient(
			pkgduckdb.WithPath(cfg.Storage.DuckDB.Path),
		)
		if err != nil {
			return nil, fmt.Errorf("duckdb client: %w", err)
		}
		repo = internalrepo.NewDuckDBSnapshotStore(client, log)
	case "clickhouse":
		var client *pkgch.Client
		client, err = pkgch.NewClient(
			pkgch.WithHost(cfg.Storage.ClickHouse.Host),
			pkgch.WithPort(cfg.Storage.ClickHouse.Port),
			pkgch.WithDatabase(cfg.Storage.ClickHouse.Database),
			pkgch.WithCredentials(cfg.Storage.ClickHouse.User, cfg.Storage.ClickHouse.Password),
			pkgch.WithHTTP(cfg.Storage.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.Storage.ClickHouse.DialTimeout, cfg.Storage.ClickHouse.ReadTimeout, cfg.Storage.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.Storage.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		repo = internalrepo.NewClickHouseSnapshotStore(client, log)
	case "memory":
		repo = internalrepo.NewMemorySnapshotStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return repo, nil
}

// ProvideSnapshotStore narrows the repository to its write capability.
func ProvideSnapshotStore(repo repository.SnapshotRepository) repository.SnapshotStore {
	return repo
}

// ProvideSnapshotReader narrows the repository to its read capability.
func ProvideSnapshotReader(repo repository.SnapshotRepository) repository.SnapshotReader {
	return repo
}

// ProvideMarketFetcher creates the CoinGecko fetch client.
func ProvideMarketFetcher(cfg *config.Config, log *logger.Logger) repository.MarketFetcher {
	return coingecko.NewClient(coingecko.Config{
		BaseURL:  cfg.Ingest.BaseURL,
		APIKey:   cfg.Ingest.APIKey,
		Currency: cfg.Ingest.Currency,
		Coins:    cfg.Ingest.Coins,
	}, log)
}

// ProvideKafkaProducer creates a producer when the kafka backend is on.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher wraps the producer as a snapshot publisher; nil in
// direct mode.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config, log *logger.Logger) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic, log)
}

// ProvideKafkaConsumer creates a consumer when the kafka backend is on.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSnapshotsHandler consumes the raw snapshots topic; nil in
// direct mode.
func ProvideKafkaSnapshotsHandler(cfg *config.Config, pipeline *usecase.SnapshotPipeline, log *logger.Logger) pkgkafka.MessageHandler {
	if cfg.Backend.Type != "kafka" {
		return nil
	}
	return usecase.NewKafkaSnapshotsHandler(cfg.Kafka.Topic, pipeline, log)
}

// ProvideSnapshotLoader creates the dedup and upsert engine.
func ProvideSnapshotLoader(store repository.SnapshotStore, m repository.Metrics, log *logger.Logger) *usecase.SnapshotLoader {
	return usecase.NewSnapshotLoader(store, m, log)
}

// ProvideSnapshotPipeline wires validate, normalize and load together.
func ProvideSnapshotPipeline(loader *usecase.SnapshotLoader, m repository.Metrics, log *logger.Logger) *usecase.SnapshotPipeline {
	return usecase.NewSnapshotPipeline(loader, m, log)
}

// ProvideSnapshotCollector creates the fetch loop.
func ProvideSnapshotCollector(
	fetcher repository.MarketFetcher,
	raw repository.RawStore,
	pipeline *usecase.SnapshotPipeline,
	publisher repository.Publisher,
	cfg *config.Config,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.SnapshotCollector {
	return usecase.NewSnapshotCollector(fetcher, raw, pipeline, publisher, usecase.CollectorOptions{
		Interval: cfg.Ingest.Interval,
		Replay:   cfg.Ingest.Replay,
	}, m, log)
}

// ProvideSnapshotQuery creates the cached read facade.
func ProvideSnapshotQuery(reader repository.SnapshotReader, c cache.Service, cfg *config.Config, log *logger.Logger) *usecase.SnapshotQuery {
	return usecase.NewSnapshotQuery(reader, c, cfg.Cache.TTL, log)
}

// ProvideHTTPHandler creates the Echo read API.
func ProvideHTTPHandler(log *logger.Logger, query *usecase.SnapshotQuery, store repository.SnapshotStore) xhttp.Handler {
	return api.NewSnapshotsEchoHandler(log, query, store)
}

// ProvideApp assembles the application. With the kafka backend on and a log
// topic configured, error logs are aggregated onto the bus as well.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	store repository.SnapshotStore,
	c cache.Service,
	publisher repository.Publisher,
	httpHandler xhttp.Handler,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, log, collector, consumer, kh, store)
	app.SetHTTPHandler(httpHandler)
	app.SetCache(c)
	app.SetPublisher(publisher)

	if producer != nil && cfg.Kafka.LogTopic != "" {
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	return app
}
