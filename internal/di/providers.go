package di

import (
	"context"
	"fmt"
	"time"

	"VitalPulse/internal/domain/repository"
	"VitalPulse/internal/handler/api"
	internalrepo "VitalPulse/internal/repository"
	"VitalPulse/internal/service/ratelimit"
	"VitalPulse/internal/services/anomaly"
	"VitalPulse/internal/services/patterns"
	"VitalPulse/internal/usecase"
	"VitalPulse/pkg/cache"
	pkgch "VitalPulse/pkg/clickhouse"
	"VitalPulse/pkg/config"
	xhttp "VitalPulse/pkg/http"
	pkgkafka "VitalPulse/pkg/kafka"
	applogger "VitalPulse/pkg/logger"
	"VitalPulse/pkg/metrics"
	pkgpg "VitalPulse/pkg/postgres"
	"VitalPulse/pkg/queue"
	"VitalPulse/pkg/server"
)

const schemaTimeout = 10 * time.Second

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// closeFunc adapts a client's Close to a wire cleanup.
func closeFunc(l *applogger.Logger, name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			l.Warn("close error", applogger.String("client", name), applogger.Error(err))
		}
	}
}

func noCleanup() {}

// ProvideRedisCache connects to Redis. Returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, noCleanup, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc, closeFunc(l, "redis", rc.Close), nil
}

// ProvidePostgresClient connects and migrates when baselines live in Postgres.
// Returns nil for other backends.
func ProvidePostgresClient(cfg *config.Config, l *applogger.Logger) (*pkgpg.Client, func(), error) {
	if cfg.Baseline.Backend != config.BackendPostgres {
		return nil, noCleanup, nil
	}
	client, err := pkgpg.NewClient(
		pkgpg.WithDSN(cfg.Postgres.DSN),
		pkgpg.WithMaxConnections(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns),
		pkgpg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres client: %w", err)
	}
	cleanup := closeFunc(l, "postgres", client.Close)
	if !cfg.Postgres.Migrate {
		return client, cleanup, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := client.Migrate(ctx, internalrepo.PostgresSchema); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, cleanup, nil
}

// ProvideClickHouseClient creates the record store client. Returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, noCleanup, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := closeFunc(l, "clickhouse", client.Close)
	if !cfg.ClickHouse.InitSchema {
		return client, cleanup, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, cleanup, nil
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, noCleanup, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, closeFunc(l, "kafka_producer", producer.Close), nil
}

// ProvideBaselineRepository selects the baseline backend.
func ProvideBaselineRepository(cfg *config.Config, rc *cache.RedisCache, pg *pkgpg.Client, l *applogger.Logger) (repository.BaselineRepository, error) {
	switch cfg.Baseline.Backend {
	case config.BackendMemory:
		l.Warn("baselines are kept in memory and will not survive a restart")
		return internalrepo.NewMemoryBaselineStore(), nil
	case config.BackendRedis:
		if rc == nil {
			return nil, fmt.Errorf("baseline backend %q needs redis", cfg.Baseline.Backend)
		}
		return internalrepo.NewRedisBaselineStore(rc.Client(), rc.Prefix(), l), nil
	case config.BackendPostgres:
		if pg == nil {
			return nil, fmt.Errorf("baseline backend %q needs a postgres client", cfg.Baseline.Backend)
		}
		return internalrepo.NewPostgresBaselineStore(pg), nil
	default:
		return nil, fmt.Errorf("unknown baseline backend %q", cfg.Baseline.Backend)
	}
}

// ProvideRecordsStore uses ClickHouse when connected, otherwise memory.
func ProvideRecordsStore(ch *pkgch.Client, l *applogger.Logger) repository.RecordsStore {
	if ch == nil {
		l.Warn("clickhouse disabled, raw records are kept in memory")
		return internalrepo.NewMemoryRecordsStore()
	}
	return internalrepo.NewCHRecordsStore(ch, l)
}

func ProvideClassifier(repo repository.BaselineRepository, l *applogger.Logger) *anomaly.Classifier {
	return anomaly.NewClassifier(repo, l)
}

func ProvideDetector(cfg *config.Config, records repository.RecordsStore, repo repository.BaselineRepository, l *applogger.Logger) *patterns.Detector {
	return patterns.NewDetector(records, repo, l,
		patterns.WithActivityWindow(cfg.Engine.ActivityStartHour, cfg.Engine.ActivityEndHour),
		patterns.WithDefaultLocation(cfg.Location()),
	)
}

func ProvideBaselineUseCase(cfg *config.Config, repo repository.BaselineRepository, records repository.RecordsStore, m repository.Metrics, l *applogger.Logger) *usecase.BaselineUseCase {
	return usecase.NewBaselineUseCase(repo, records, m, l, usecase.BaselineConfig{
		WindowDays:      cfg.Engine.WindowDays,
		ConflictRetries: cfg.Engine.ConflictRetries,
		IORetries:       cfg.Engine.IORetries,
	})
}

func ProvideSnapshotBuilder(cfg *config.Config, records repository.RecordsStore, classifier *anomaly.Classifier, detector *patterns.Detector, m repository.Metrics, l *applogger.Logger) *usecase.SnapshotBuilder {
	return usecase.NewSnapshotBuilder(records, classifier, detector, m, l, usecase.SnapshotConfig{
		Timeout:        cfg.Engine.SnapshotTimeout,
		CallTimeout:    cfg.Engine.CallTimeout,
		MaxConcurrency: cfg.Engine.MaxConcurrency,
		IORetries:      cfg.Engine.IORetries,
	})
}

func ProvideEngine(baselines *usecase.BaselineUseCase, classifier *anomaly.Classifier, detector *patterns.Detector, builder *usecase.SnapshotBuilder) *usecase.Engine {
	return usecase.NewEngine(baselines, classifier, detector, builder)
}

// ProvideSnapshotPublisher returns nil without a producer; snapshots are then
// only cached.
func ProvideSnapshotPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.SnapshotPublisher {
	if producer == nil || cfg.Kafka.SnapshotsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.SnapshotsTopic)
}

// ProvideSnapshotCache layers memory over Redis, or uses memory alone.
func ProvideSnapshotCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredL1TTL(cfg.Cache.SnapshotTTL),
	)
}

// ProvideJobQueue creates the snapshot job queue. Returns nil when disabled.
func ProvideJobQueue(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
}

func ProvideSnapshotService(
	cfg *config.Config,
	builder *usecase.SnapshotBuilder,
	c cache.Service,
	publisher repository.SnapshotPublisher,
	jobs *queue.RedisQueue,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SnapshotService {
	var q queue.QueueService
	if jobs != nil {
		q = jobs
	}
	return usecase.NewSnapshotService(builder, c, publisher, q, m, l, usecase.SnapshotServiceConfig{
		CacheTTL: cfg.Cache.SnapshotTTL,
		LockTTL:  cfg.Engine.SnapshotTimeout * 2,
		Topic:    cfg.Kafka.SnapshotsTopic,
	})
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 10*time.Minute)
}

func ProvideHealthHandler(l *applogger.Logger, engine *usecase.Engine, snapshots *usecase.SnapshotService, limiter *ratelimit.Limiter) *api.HealthEchoHandler {
	return api.NewHealthEchoHandler(l, engine, snapshots, limiter)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.HealthEchoHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideKafkaConsumer creates the observations consumer. Returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, baselines *usecase.BaselineUseCase, m repository.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewObservationsHandler(cfg.Kafka.ObservationsTopic, baselines, m, l))
	consumer.SetHook(pkgkafka.TraceIDHook())
	return consumer, nil
}

// ProvideApp registers background jobs. Clients are released by the
// injector's cleanup after Run returns.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	jobs *queue.RedisQueue,
	snapshots *usecase.SnapshotService,
) *server.App {
	if jobs != nil {
		jobs.RegisterJob(usecase.NewSnapshotJob(snapshots))
	}
	return server.New(l, httpServer, consumer, jobs, cfg.Server.ShutdownTimeout)
}
