package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
)

const historyFile = "history.jsonl"

// JSONLHistory writes one JSON line per epoch to {dir}/{run name}/history.jsonl.
type JSONLHistory struct {
	dir string
	mu  sync.Mutex
}

func NewJSONLHistory(dir string) *JSONLHistory {
	return &JSONLHistory{dir: dir}
}

var _ domrepo.HistorySink = (*JSONLHistory)(nil)

// Path returns the history file of a run.
func (h *JSONLHistory) Path(runName string) string {
	return filepath.Join(h.dir, runName, historyFile)
}

func (h *JSONLHistory) RecordEpoch(_ context.Context, run models.Run, e models.EpochResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	path := h.Path(run.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if err := json.NewEncoder(f).Encode(e); err != nil {
		f.Close()
		return fmt.Errorf("write history: %w", err)
	}
	return f.Close()
}

