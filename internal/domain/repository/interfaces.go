package repository

import (
	"context"

	"CryptoRNN/internal/domain/models"
)

type CandleSource interface {
	Load(ctx context.Context, ratio string) ([]models.Candle, error)
}

type HistorySink interface {
	RecordEpoch(ctx context.Context, run models.Run, epoch models.EpochResult) error
}

type CheckpointSink interface {
	RecordCheckpoint(ctx context.Context, rec models.CheckpointRecord) error
}

type RunRegistry interface {
	// Acquire takes the run lock for name; ErrRunInProgress if held.
	Acquire(ctx context.Context, name string) (release func(), err error)
	Best(ctx context.Context, runName string) (models.CheckpointRecord, error)
	CheckpointSink
}

type Metrics interface {
	RecordSequences(split string, label int, n int)
	RecordBatchLoss(loss float64)
	RecordEpoch(loss, acc, valLoss, valAcc float64)
	RecordCheckpoint()
	RecordError(kind string)
	RecordLatency(stage string, seconds float64)
}
