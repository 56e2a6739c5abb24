package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"CryptoRNN/internal/domain/service"
)

// FileCheckpointStore writes classifiers under a models directory. Files are
// written to a temp name and renamed, so a crash never leaves a torn checkpoint.
type FileCheckpointStore struct {
	dir string
}

func NewFileCheckpointStore(dir string) *FileCheckpointStore {
	return &FileCheckpointStore{dir: dir}
}

var _ service.CheckpointStore = (*FileCheckpointStore)(nil)

func (s *FileCheckpointStore) Save(name string, c service.Classifier) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ckpt-*")
	if err != nil {
		return "", fmt.Errorf("create temp checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := c.Save(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename checkpoint: %w", err)
	}
	return path, nil
}

