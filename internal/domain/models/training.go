package models

import "time"

// Run identifies one training run.
type Run struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
}

// EpochResult holds the metrics reported after each epoch.
type EpochResult struct {
	Epoch        int           `json:"epoch"`
	Loss         float64       `json:"loss"`
	Accuracy     float64       `json:"accuracy"`
	ValLoss      float64       `json:"val_loss"`
	ValAccuracy  float64       `json:"val_accuracy"`
	LearningRate float64       `json:"learning_rate"`
	Duration     time.Duration `json:"duration"`
	Checkpoint   string        `json:"checkpoint,omitempty"`
}

// CheckpointRecord describes a saved checkpoint.
type CheckpointRecord struct {
	RunID       string    `json:"run_id"`
	RunName     string    `json:"run_name"`
	Epoch       int       `json:"epoch"`
	ValAccuracy float64   `json:"val_accuracy"`
	Path        string    `json:"path"`
	SavedAt     time.Time `json:"saved_at"`
}

// TrainingResult is the summary of a finished run.
type TrainingResult struct {
	Run            Run           `json:"run"`
	History        []EpochResult `json:"history"`
	BestEpoch      int           `json:"best_epoch"`
	BestValAcc     float64       `json:"best_val_accuracy"`
	BestCheckpoint string        `json:"best_checkpoint,omitempty"`
	FinalModel     string        `json:"final_model"`
	TestLoss       float64       `json:"test_loss"`
	TestAccuracy   float64       `json:"test_accuracy"`
}

// Training states reported by the status endpoint.
const (
	StateIdle      = "idle"
	StatePreparing = "preparing"
	StateTraining  = "training"
	StateDone      = "done"
	StateFailed    = "failed"
)

// TrainingStatus is a point-in-time view of the current run.
type TrainingStatus struct {
	State     string       `json:"state"`
	Run       *Run         `json:"run,omitempty"`
	Epoch     int          `json:"epoch"`
	Epochs    int          `json:"epochs"`
	LastEpoch *EpochResult `json:"last_epoch,omitempty"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// HistoryRequest is the query of GET /api/training/history.
type HistoryRequest struct {
	Limit int `query:"limit" default:"50" validate:"gte=1,lte=1000"`
}
