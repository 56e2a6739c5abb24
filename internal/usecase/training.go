package usecase

import (
	"context"
	"fmt"
	"time"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	applogger "CryptoRNN/pkg/logger"

	"github.com/google/uuid"
)

// TrainingConfig is the static configuration of TrainingUseCase.
type TrainingConfig struct {
	Dataset   DatasetParams
	Train     TrainParams
	RunPrefix string
	RunName   func(time.Time) string
}

// TrainingUseCase prepares data and trains one model under the run lock.
type TrainingUseCase struct {
	builder  *DatasetBuilder
	trainer  *Trainer
	registry domrepo.RunRegistry
	status   *StatusTracker
	cfg      TrainingConfig
	l        *applogger.Logger
	now      func() time.Time
}

func NewTrainingUseCase(
	builder *DatasetBuilder,
	trainer *Trainer,
	registry domrepo.RunRegistry,
	status *StatusTracker,
	cfg TrainingConfig,
	l *applogger.Logger,
) *TrainingUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.RunName == nil {
		prefix := cfg.RunPrefix
		cfg.RunName = func(t time.Time) string { return fmt.Sprintf("%s-%d", prefix, t.Unix()) }
	}
	return &TrainingUseCase{
		builder:  builder,
		trainer:  trainer,
		registry: registry,
		status:   status,
		cfg:      cfg,
		l:        l,
		now:      time.Now,
	}
}

// Prepare runs the data pipeline only.
func (uc *TrainingUseCase) Prepare(ctx context.Context) (*models.PreparedData, error) {
	data, err := uc.builder.Build(ctx, uc.cfg.Dataset)
	if err != nil {
		return nil, err
	}
	uc.l.Info("data prepared",
		applogger.Int("train", data.Train.Len()),
		applogger.Int("validation", data.Validation.Len()),
		applogger.Int("train_dont_buys", data.TrainCounts.DontBuys),
		applogger.Int("train_buys", data.TrainCounts.Buys),
		applogger.Int("validation_dont_buys", data.ValCounts.DontBuys),
		applogger.Int("validation_buys", data.ValCounts.Buys),
	)
	return data, nil
}

// Preview returns the first n labelled rows.
func (uc *TrainingUseCase) Preview(ctx context.Context, n int) ([]models.PreviewRow, error) {
	return uc.builder.Preview(ctx, uc.cfg.Dataset, n)
}

// Run takes the run lock, prepares data and trains. onPrepared, when set, is
// called once the datasets are ready.
func (uc *TrainingUseCase) Run(ctx context.Context, onPrepared func(*models.PreparedData)) (*models.TrainingResult, error) {
	release, err := uc.registry.Acquire(ctx, uc.cfg.RunPrefix)
	if err != nil {
		return nil, err
	}
	defer release()

	started := uc.now()
	run := models.Run{ID: uuid.NewString(), Name: uc.cfg.RunName(started), StartedAt: started.UTC()}
	uc.status.Begin(run, uc.cfg.Train.Epochs)
	uc.l.Info("training run started", applogger.String("run", run.Name), applogger.String("run_id", run.ID))

	data, err := uc.Prepare(ctx)
	if err != nil {
		uc.status.Fail(err)
		return nil, fmt.Errorf("prepare: %w", err)
	}
	if onPrepared != nil {
		onPrepared(data)
	}

	uc.status.SetState(models.StateTraining)
	res, err := uc.trainer.Fit(ctx, run, data, uc.cfg.Train)
	if err != nil {
		uc.status.Fail(err)
		return res, err
	}
	uc.status.SetState(models.StateDone)

	uc.l.Info("training run finished",
		applogger.String("run", run.Name),
		applogger.Float64("test_loss", res.TestLoss),
		applogger.Float64("test_accuracy", res.TestAccuracy),
		applogger.Int("best_epoch", res.BestEpoch),
		applogger.String("final_model", res.FinalModel),
	)
	return res, nil
}
