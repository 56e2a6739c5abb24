package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkpointRecord struct {
	Path   string  `json:"path"`
	ValAcc float64 `json:"val_acc"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()

	require.NoError(t, mc.Set(ctx, "best", checkpointRecord{Path: "models/RNN_Final-03-0.561.model", ValAcc: 0.561}, 0))

	var got checkpointRecord
	require.NoError(t, mc.Get(ctx, "best", &got))
	assert.Equal(t, "models/RNN_Final-03-0.561.model", got.Path)
	assert.InDelta(t, 0.561, got.ValAcc, 1e-12)

	var missing checkpointRecord
	assert.ErrorIs(t, mc.Get(ctx, "nope", &missing), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	mc := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheTryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()

	ok, err := mc.TryLock(ctx, "train-lock", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "train-lock", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "train-lock"))
	ok, err = mc.TryLock(ctx, "train-lock", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(0, 0)
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "b", "2", 0))

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s)) // touch a

	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	ok, _ := mc.Exists(ctx, "b")
	assert.False(t, ok, "b should have been evicted")
	ok, _ = mc.Exists(ctx, "a")
	assert.True(t, ok)
}

func tickingClock() func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestMemoryCacheEvictionSkipsLocks(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(tickingClock()))

	ok, err := mc.TryLock(ctx, "run:lock:60-SEQ-3-PRED", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "b", "2", 0))

	ok, err = mc.TryLock(ctx, "run:lock:60-SEQ-3-PRED", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "lock must survive eviction")

	ok, _ = mc.Exists(ctx, "a")
	assert.False(t, ok, "a is the oldest plain key")
	ok, _ = mc.Exists(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryCacheTryLockRespectsMaxSize(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(tickingClock()))

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "b", "2", 0))

	ok, err := mc.TryLock(ctx, "lock", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	mc.mu.Lock()
	size := len(mc.data)
	mc.mu.Unlock()
	assert.Equal(t, 2, size)

	ok, _ = mc.Exists(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryCacheEvictsExpiredFirst(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(tickingClock()))

	require.NoError(t, mc.Set(ctx, "old", "1", 0))
	require.NoError(t, mc.Set(ctx, "short", "2", time.Second))
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	ok, _ := mc.Exists(ctx, "old")
	assert.True(t, ok, "expired entry goes before the least recently used one")
	ok, _ = mc.Exists(ctx, "short")
	assert.False(t, ok)
}
