package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"CryptoRNN/internal/domain/models"
	"CryptoRNN/internal/handler/api"
	"CryptoRNN/internal/usecase"
	"CryptoRNN/pkg/cache"
	pkgch "CryptoRNN/pkg/clickhouse"
	"CryptoRNN/pkg/config"
	xhttp "CryptoRNN/pkg/http"
	pkgkafka "CryptoRNN/pkg/kafka"
	applogger "CryptoRNN/pkg/logger"
)

// App encapsulates the application lifecycle: the three commands, the
// optional HTTP surface and the infrastructure clients to release.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	training   *usecase.TrainingUseCase
	httpServer *xhttp.Server
	hub        *api.ProgressHub
	cache      cache.Service
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	out        io.Writer
}

// Option configures App.
type Option func(*App)

// WithHTTPServer serves status and progress while training. Nil disables it.
func WithHTTPServer(s *xhttp.Server) Option {
	return func(a *App) { a.httpServer = s }
}

// WithProgressHub closes the websocket hub on shutdown.
func WithProgressHub(h *api.ProgressHub) Option {
	return func(a *App) { a.hub = h }
}

// WithResources hands over infrastructure clients closed by Close. Any may be nil.
func WithResources(c cache.Service, producer *pkgkafka.Producer, ch *pkgch.Client) Option {
	return func(a *App) {
		a.cache = c
		a.producer = producer
		a.chClient = ch
	}
}

// WithOutput redirects command reports, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, training *usecase.TrainingUseCase, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, logger: l, training: training, out: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Prepare runs the data pipeline and reports split sizes and class balance.
func (a *App) Prepare(ctx context.Context) error {
	data, err := a.training.Prepare(ctx)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	a.reportPrepared(data)
	return nil
}

// Preview prints the first n labelled rows of the predicted ratio.
func (a *App) Preview(ctx context.Context, n int) error {
	rows, err := a.training.Preview(ctx, n)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "time\t%s_close\tfuture\ttarget\n", a.cfg.Dataset.RatioToPredict)
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%g\t%g\t%d\n", r.Time, r.Current, r.Future, r.Target)
	}
	return tw.Flush()
}

// Train prepares data and fits the model, serving status and progress over
// HTTP for the duration of the run when a server is configured.
func (a *App) Train(ctx context.Context) error {
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server start error", applogger.Error(err))
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			if a.hub != nil {
				a.hub.Close()
			}
			if err := a.httpServer.Stop(stopCtx); err != nil {
				a.logger.Error("http shutdown error", applogger.Error(err))
			}
		}()
	}

	res, err := a.training.Run(ctx, a.reportPrepared)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	fmt.Fprintf(a.out, "Test loss: %.6f\n", res.TestLoss)
	fmt.Fprintf(a.out, "Test accuracy: %.6f\n", res.TestAccuracy)
	if res.BestCheckpoint != "" {
		fmt.Fprintf(a.out, "Best checkpoint: %s (epoch %d, val_acc %.3f)\n", res.BestCheckpoint, res.BestEpoch, res.BestValAcc)
	}
	fmt.Fprintf(a.out, "Model saved: %s\n", res.FinalModel)
	return nil
}

// Close releases infrastructure clients. The log collector is flushed before
// the producer it ships through is closed.
func (a *App) Close() error {
	start := time.Now()
	var errs []error

	a.logger.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka producer: %w", err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Warn("shutdown finished with errors", applogger.Error(err))
	} else {
		a.logger.Debug("shutdown complete", applogger.Duration("duration_ms", time.Since(start)))
	}
	return err
}

func (a *App) reportPrepared(data *models.PreparedData) {
	fmt.Fprintf(a.out, "train data: %d validation: %d\n", data.Train.Len(), data.Validation.Len())
	fmt.Fprintf(a.out, "Dont buys: %d, buys: %d\n", data.TrainCounts.DontBuys, data.TrainCounts.Buys)
	fmt.Fprintf(a.out, "VALIDATION Dont buys: %d, buys: %d\n", data.ValCounts.DontBuys, data.ValCounts.Buys)
}
