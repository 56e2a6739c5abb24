package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	"CryptoRNN/internal/domain/service"
	applogger "CryptoRNN/pkg/logger"
)

// ModelFactory builds a fresh classifier for the given number of input features.
type ModelFactory func(features int) (service.Classifier, error)

// TrainParams controls the fit loop.
type TrainParams struct {
	Epochs    int
	BatchSize int
	Seed      int64
}

// Trainer runs mini-batch training, validation after each epoch and
// checkpointing on validation accuracy improvements.
type Trainer struct {
	factory     ModelFactory
	store       service.CheckpointStore
	history     []domrepo.HistorySink
	checkpoints []domrepo.CheckpointSink
	metrics     domrepo.Metrics
	l           *applogger.Logger
	now         func() time.Time
}

// TrainerOption configures Trainer.
type TrainerOption func(*Trainer)

// WithHistorySinks adds epoch observers.
func WithHistorySinks(sinks ...domrepo.HistorySink) TrainerOption {
	return func(t *Trainer) {
		for _, s := range sinks {
			if s != nil {
				t.history = append(t.history, s)
			}
		}
	}
}

// WithCheckpointSinks adds checkpoint observers.
func WithCheckpointSinks(sinks ...domrepo.CheckpointSink) TrainerOption {
	return func(t *Trainer) {
		for _, s := range sinks {
			if s != nil {
				t.checkpoints = append(t.checkpoints, s)
			}
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) TrainerOption {
	return func(t *Trainer) { t.now = now }
}

func NewTrainer(factory ModelFactory, store service.CheckpointStore, metrics domrepo.Metrics, l *applogger.Logger, opts ...TrainerOption) *Trainer {
	if l == nil {
		l = applogger.Nop()
	}
	t := &Trainer{factory: factory, store: store, metrics: metrics, l: l, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CheckpointName formats RNN_Final-{epoch:02d}-{val_acc:.3f}.model.
func CheckpointName(epoch int, valAcc float64) string {
	return fmt.Sprintf("RNN_Final-%02d-%.3f.model", epoch, valAcc)
}

// Fit trains a new model on data. Cancelling ctx stops training between batches.
func (t *Trainer) Fit(ctx context.Context, run models.Run, data *models.PreparedData, p TrainParams) (*models.TrainingResult, error) {
	train, val := data.Train, data.Validation
	if train.Len() == 0 || val.Len() == 0 {
		return nil, fmt.Errorf("fit: empty split: %w", models.ErrNotEnoughData)
	}
	if p.BatchSize < 1 || p.Epochs < 1 {
		return nil, fmt.Errorf("fit: epochs and batch size must be positive")
	}

	model, err := t.factory(len(train.Features))
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	log := t.l.With(applogger.String("run", run.Name))
	rng := rand.New(rand.NewSource(p.Seed))
	order := make([]int, train.Len())
	for i := range order {
		order[i] = i
	}

	res := &models.TrainingResult{Run: run, BestValAcc: -1}
	for epoch := 1; epoch <= p.Epochs; epoch++ {
		start := t.now()
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var lossSum, accSum float64
		for lo := 0; lo < len(order); lo += p.BatchSize {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("training cancelled in epoch %d: %w", epoch, err)
			}
			hi := min(lo+p.BatchSize, len(order))
			bx, by := gather(train, order[lo:hi])
			loss, acc, err := model.TrainBatch(bx, by)
			if err != nil {
				t.recordError("train_batch")
				return res, fmt.Errorf("epoch %d batch at %d: %w", epoch, lo, err)
			}
			n := float64(hi - lo)
			lossSum += loss * n
			accSum += acc * n
			if t.metrics != nil {
				t.metrics.RecordBatchLoss(loss)
			}
		}

		valLoss, valAcc, err := model.Evaluate(val.X, val.Y, p.BatchSize)
		if err != nil {
			t.recordError("evaluate")
			return res, fmt.Errorf("validate epoch %d: %w", epoch, err)
		}

		n := float64(train.Len())
		er := models.EpochResult{
			Epoch:        epoch,
			Loss:         lossSum / n,
			Accuracy:     accSum / n,
			ValLoss:      valLoss,
			ValAccuracy:  valAcc,
			LearningRate: model.LearningRate(),
			Duration:     t.now().Sub(start),
		}

		if valAcc > res.BestValAcc {
			path, err := t.store.Save(CheckpointName(epoch, valAcc), model)
			if err != nil {
				t.recordError("checkpoint")
				return res, fmt.Errorf("checkpoint epoch %d: %w", epoch, err)
			}
			res.BestValAcc, res.BestEpoch, res.BestCheckpoint = valAcc, epoch, path
			er.Checkpoint = path
			t.publishCheckpoint(ctx, log, models.CheckpointRecord{
				RunID:       run.ID,
				RunName:     run.Name,
				Epoch:       epoch,
				ValAccuracy: valAcc,
				Path:        path,
				SavedAt:     t.now().UTC(),
			})
		}

		res.History = append(res.History, er)
		if t.metrics != nil {
			t.metrics.RecordEpoch(er.Loss, er.Accuracy, er.ValLoss, er.ValAccuracy)
			t.metrics.RecordLatency("epoch", er.Duration.Seconds())
		}
		t.publishEpoch(ctx, log, run, er)

		log.Info("epoch finished",
			applogger.Int("epoch", epoch),
			applogger.Int("epochs", p.Epochs),
			applogger.Float64("loss", er.Loss),
			applogger.Float64("accuracy", er.Accuracy),
			applogger.Float64("val_loss", er.ValLoss),
			applogger.Float64("val_accuracy", er.ValAccuracy),
			applogger.Duration("duration_ms", er.Duration),
		)
	}

	res.TestLoss, res.TestAccuracy, err = model.Evaluate(val.X, val.Y, p.BatchSize)
	if err != nil {
		return res, fmt.Errorf("final evaluation: %w", err)
	}
	if res.FinalModel, err = t.store.Save(run.Name, model); err != nil {
		t.recordError("checkpoint")
		return res, fmt.Errorf("save final model: %w", err)
	}
	return res, nil
}

func (t *Trainer) publishEpoch(ctx context.Context, log *applogger.Logger, run models.Run, e models.EpochResult) {
	for _, s := range t.history {
		if err := s.RecordEpoch(ctx, run, e); err != nil {
			t.recordError("history_sink")
			log.Warn("history sink failed", applogger.Int("epoch", e.Epoch), applogger.Error(err))
		}
	}
}

func (t *Trainer) publishCheckpoint(ctx context.Context, log *applogger.Logger, rec models.CheckpointRecord) {
	if t.metrics != nil {
		t.metrics.RecordCheckpoint()
	}
	for _, s := range t.checkpoints {
		if err := s.RecordCheckpoint(ctx, rec); err != nil {
			t.recordError("checkpoint_sink")
			log.Warn("checkpoint sink failed", applogger.String("path", rec.Path), applogger.Error(err))
		}
	}
}

func (t *Trainer) recordError(kind string) {
	if t.metrics != nil {
		t.metrics.RecordError(kind)
	}
}

func gather(ds models.Dataset, idx []int) ([][][]float64, []int) {
	x := make([][][]float64, len(idx))
	y := make([]int, len(idx))
	for k, i := range idx {
		x[k] = ds.X[i]
		y[k] = ds.Y[i]
	}
	return x, y
}
