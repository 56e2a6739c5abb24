package usecase

import (
	"context"
	"sync"
	"time"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
)

// StatusTracker keeps the state and epoch history of the current run for the
// status API.
type StatusTracker struct {
	mu      sync.RWMutex
	status  models.TrainingStatus
	history []models.EpochResult
	now     func() time.Time
}

func NewStatusTracker() *StatusTracker {
	s := &StatusTracker{now: time.Now}
	s.status = models.TrainingStatus{State: models.StateIdle, UpdatedAt: s.now()}
	return s
}

var _ domrepo.HistorySink = (*StatusTracker)(nil)

// Begin resets the tracker for a new run.
func (s *StatusTracker) Begin(run models.Run, epochs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := run
	s.history = nil
	s.status = models.TrainingStatus{State: models.StatePreparing, Run: &r, Epochs: epochs, UpdatedAt: s.now()}
}

// SetState moves the run to state.
func (s *StatusTracker) SetState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
	s.status.UpdatedAt = s.now()
}

// Fail marks the run failed with err.
func (s *StatusTracker) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = models.StateFailed
	s.status.Error = err.Error()
	s.status.UpdatedAt = s.now()
}

func (s *StatusTracker) RecordEpoch(_ context.Context, _ models.Run, e models.EpochResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, e)
	last := e
	s.status.Epoch = e.Epoch
	s.status.LastEpoch = &last
	s.status.UpdatedAt = s.now()
	return nil
}

// Snapshot returns a copy of the current status.
func (s *StatusTracker) Snapshot() models.TrainingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.status
	if out.Run != nil {
		r := *out.Run
		out.Run = &r
	}
	if out.LastEpoch != nil {
		e := *out.LastEpoch
		out.LastEpoch = &e
	}
	return out
}

// History returns up to limit of the most recent epochs, oldest first.
func (s *StatusTracker) History(limit int) []models.EpochResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from := 0
	if limit > 0 && len(s.history) > limit {
		from = len(s.history) - limit
	}
	out := make([]models.EpochResult, len(s.history)-from)
	copy(out, s.history[from:])
	return out
}
