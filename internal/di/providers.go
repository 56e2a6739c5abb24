package di

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	domrepo "CryptoRNN/internal/domain/repository"
	"CryptoRNN/internal/domain/service"
	"CryptoRNN/internal/handler/api"
	internalrepo "CryptoRNN/internal/repository"
	"CryptoRNN/internal/service/ratelimit"
	"CryptoRNN/internal/services/rnn"
	"CryptoRNN/internal/usecase"
	"CryptoRNN/pkg/cache"
	pkgch "CryptoRNN/pkg/clickhouse"
	"CryptoRNN/pkg/config"
	xhttp "CryptoRNN/pkg/http"
	pkgkafka "CryptoRNN/pkg/kafka"
	applogger "CryptoRNN/pkg/logger"
	"CryptoRNN/pkg/metrics"
	"CryptoRNN/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCache creates the memory or redis cache backing the run registry.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(1024)), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Host, cfg.Cache.Port),
		cache.WithRedisAuth(cfg.Cache.Password, cfg.Cache.DB),
		cache.WithRedisPrefix(cfg.Cache.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
// Error logs are aggregated and shipped to the log topic through it.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers...),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithKeyHashing(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval: 30 * time.Second,
			Topic:        cfg.Kafka.LogTopic,
			Publisher:    producer,
		})
	}
	return producer, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the candle
// and history tables exist. Returns nil when clickhouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(true, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout, cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := internalrepo.InitCHSchema(ctx, client, cfg.ClickHouse.CandleTable, cfg.ClickHouse.HistoryTable); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCandleSource picks the candle source named by dataset.source.
func ProvideCandleSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (domrepo.CandleSource, error) {
	switch cfg.Dataset.Source {
	case "csv":
		return internalrepo.NewCSVSource(cfg.Dataset.Dir, l), nil
	case "http":
		client := xhttp.NewClient(xhttp.WithTimeout(time.Minute), xhttp.WithRetries(2, time.Second))
		return internalrepo.NewHTTPSource(client, cfg.Dataset.BaseURL), nil
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("candle source clickhouse: client disabled")
		}
		src := internalrepo.NewCHCandleSource(ch, cfg.ClickHouse.CandleTable, l)
		l.Debug("clickhouse candle source", applogger.String("table", src.Table()))
		return src, nil
	default:
		return nil, fmt.Errorf("unknown candle source %q", cfg.Dataset.Source)
	}
}

// ProvideRunRegistry creates the cache-backed run lock and best checkpoint index.
func ProvideRunRegistry(cfg *config.Config, c cache.Service) domrepo.RunRegistry {
	return internalrepo.NewCacheRunRegistry(c, cfg.Cache.LockTTL)
}

// ProvideCheckpointStore creates the models directory store.
func ProvideCheckpointStore(cfg *config.Config) service.CheckpointStore {
	return internalrepo.NewFileCheckpointStore(cfg.Training.ModelsDir)
}

// ProvideStatusTracker creates the in-process training status.
func ProvideStatusTracker() *usecase.StatusTracker {
	return usecase.NewStatusTracker()
}

// ProvideProgressHub creates the websocket epoch broadcaster.
func ProvideProgressHub(l *applogger.Logger) *api.ProgressHub {
	return api.NewProgressHub(l)
}

// ProvideModelFactory builds the LSTM classifier from the model section once
// the feature count is known.
func ProvideModelFactory(cfg *config.Config) usecase.ModelFactory {
	return func(features int) (service.Classifier, error) {
		seed := cfg.Dataset.Seed
		if seed == 0 {
			seed = rand.Int63()
		}
		return rnn.New(rnn.Config{
			Features:     features,
			LSTMUnits:    cfg.Model.LSTMUnits,
			DenseUnits:   cfg.Model.DenseUnits,
			Classes:      2,
			Dropouts:     cfg.Model.Dropouts,
			DenseDropout: cfg.Model.DenseDropout,
			LearningRate: cfg.Model.LearningRate,
			Decay:        cfg.Model.Decay,
			BNMomentum:   cfg.Model.BNMomentum,
			BNEpsilon:    cfg.Model.BNEpsilon,
			Seed:         seed,
		})
	}
}

// ProvideTrainer creates the fit loop with every configured epoch and
// checkpoint observer attached.
func ProvideTrainer(
	cfg *config.Config,
	factory usecase.ModelFactory,
	store service.CheckpointStore,
	m domrepo.Metrics,
	l *applogger.Logger,
	status *usecase.StatusTracker,
	hub *api.ProgressHub,
	registry domrepo.RunRegistry,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
) *usecase.Trainer {
	history := []domrepo.HistorySink{
		internalrepo.NewJSONLHistory(cfg.Training.LogsDir),
		status,
		hub,
	}
	checkpoints := []domrepo.CheckpointSink{registry}

	if sink := provideCHHistory(cfg, ch, l); sink != nil {
		history = append(history, sink)
	}
	if producer != nil {
		events := internalrepo.NewEventPublisher(producer, cfg.Kafka.Topic)
		history = append(history, events)
		checkpoints = append(checkpoints, events)
	}

	return usecase.NewTrainer(factory, store, m, l,
		usecase.WithHistorySinks(history...),
		usecase.WithCheckpointSinks(checkpoints...),
	)
}

func provideCHHistory(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) *internalrepo.CHHistorySink {
	if ch == nil {
		return nil
	}
	sink := internalrepo.NewCHHistorySink(ch, cfg.ClickHouse.HistoryTable)
	l.Debug("clickhouse history sink", applogger.String("table", sink.Table()))
	return sink
}

// ProvideDatasetBuilder creates the data preparation pipeline.
func ProvideDatasetBuilder(source domrepo.CandleSource, m domrepo.Metrics, l *applogger.Logger) *usecase.DatasetBuilder {
	return usecase.NewDatasetBuilder(source, m, l)
}

// ProvideTrainingUseCase creates the prepare/preview/train use case.
func ProvideTrainingUseCase(
	cfg *config.Config,
	builder *usecase.DatasetBuilder,
	trainer *usecase.Trainer,
	registry domrepo.RunRegistry,
	status *usecase.StatusTracker,
	l *applogger.Logger,
) *usecase.TrainingUseCase {
	return usecase.NewTrainingUseCase(builder, trainer, registry, status, usecase.TrainingConfig{
		Dataset: usecase.DatasetParams{
			Ratios:         cfg.Dataset.Ratios,
			RatioToPredict: cfg.Dataset.RatioToPredict,
			SeqLen:         cfg.Dataset.SeqLen,
			FuturePeriod:   cfg.Dataset.FuturePeriodPredict,
			ValidationPct:  cfg.Dataset.ValidationPct,
			Seed:           cfg.Dataset.Seed,
		},
		Train: usecase.TrainParams{
			Epochs:    cfg.Training.Epochs,
			BatchSize: cfg.Training.BatchSize,
			Seed:      cfg.Dataset.Seed,
		},
		RunPrefix: cfg.RunPrefix(),
		RunName:   cfg.RunName,
	}, l)
}

// ProvideHTTPServer creates the status/progress server, or nil when disabled.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	status *usecase.StatusTracker,
	registry domrepo.RunRegistry,
	hub *api.ProgressHub,
) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	handlers := xhttp.Handlers{
		api.NewTrainingEchoHandler(l, status, registry),
		hub,
	}
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
		xhttp.WithRateLimiter(ratelimit.New(20, 10), time.Minute, 10*time.Minute),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	training *usecase.TrainingUseCase,
	httpServer *xhttp.Server,
	hub *api.ProgressHub,
	c cache.Service,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) *server.App {
	return server.New(cfg, l, training,
		server.WithHTTPServer(httpServer),
		server.WithProgressHub(hub),
		server.WithResources(c, producer, ch),
	)
}
