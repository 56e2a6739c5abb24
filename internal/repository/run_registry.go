package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	"CryptoRNN/pkg/cache"
)

// CacheRunRegistry keeps run locks and the best checkpoint per run in the
// cache (memory or redis).
type CacheRunRegistry struct {
	cache   cache.Service
	lockTTL time.Duration
}

func NewCacheRunRegistry(c cache.Service, lockTTL time.Duration) domrepo.RunRegistry {
	return &CacheRunRegistry{cache: c, lockTTL: lockTTL}
}

func lockKey(name string) string { return cache.GenerateKey("run:lock", name) }
func bestKey(name string) string { return cache.GenerateKey("run:best", name) }

func (r *CacheRunRegistry) Acquire(ctx context.Context, name string) (func(), error) {
	ok, err := r.cache.TryLock(ctx, lockKey(name), r.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, models.ErrRunInProgress)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.cache.Unlock(ctx, lockKey(name))
	}, nil
}

// RecordCheckpoint stores rec when it beats the stored best of its run.
func (r *CacheRunRegistry) RecordCheckpoint(ctx context.Context, rec models.CheckpointRecord) error {
	best, err := r.Best(ctx, rec.RunName)
	switch {
	case err == nil && best.ValAccuracy >= rec.ValAccuracy:
		return nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		return err
	}
	if err := r.cache.Set(ctx, bestKey(rec.RunName), rec, 0); err != nil {
		return fmt.Errorf("store best checkpoint: %w", err)
	}
	return nil
}

func (r *CacheRunRegistry) Best(ctx context.Context, runName string) (models.CheckpointRecord, error) {
	var rec models.CheckpointRecord
	if err := r.cache.Get(ctx, bestKey(runName), &rec); err != nil {
		return models.CheckpointRecord{}, fmt.Errorf("best checkpoint of %s: %w", runName, err)
	}
	return rec, nil
}
