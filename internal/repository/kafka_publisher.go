package repository

import (
	"context"
	"time"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
)

// MessagePublisher is the subset of *kafka.Producer used here.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// TrainingEvent is the payload published for epochs and checkpoints.
type TrainingEvent struct {
	Type       string                   `json:"type"`
	RunID      string                   `json:"run_id"`
	RunName    string                   `json:"run_name"`
	Epoch      *models.EpochResult      `json:"epoch,omitempty"`
	Checkpoint *models.CheckpointRecord `json:"checkpoint,omitempty"`
	EmittedAt  time.Time                `json:"emitted_at"`
}

// EventPublisher publishes training events keyed by run id.
type EventPublisher struct {
	producer MessagePublisher
	topic    string
}

func NewEventPublisher(producer MessagePublisher, topic string) *EventPublisher {
	return &EventPublisher{producer: producer, topic: topic}
}

var (
	_ domrepo.HistorySink    = (*EventPublisher)(nil)
	_ domrepo.CheckpointSink = (*EventPublisher)(nil)
)

func (p *EventPublisher) RecordEpoch(ctx context.Context, run models.Run, e models.EpochResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(run.ID), TrainingEvent{
		Type:      "epoch",
		RunID:     run.ID,
		RunName:   run.Name,
		Epoch:     &e,
		EmittedAt: time.Now().UTC(),
	})
}

func (p *EventPublisher) RecordCheckpoint(ctx context.Context, rec models.CheckpointRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.RunID), TrainingEvent{
		Type:       "checkpoint",
		RunID:      rec.RunID,
		RunName:    rec.RunName,
		Checkpoint: &rec,
		EmittedAt:  time.Now().UTC(),
	})
}
