package http

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type sweepLimiter struct {
	forgets atomic.Int32
	age     atomic.Int64
}

func (l *sweepLimiter) Allow(string) bool { return true }

func (l *sweepLimiter) Forget(age time.Duration) int {
	l.age.Store(int64(age))
	l.forgets.Add(1)
	return 1
}

func TestServerSweepsLimiterUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	lim := &sweepLimiter{}
	s := NewServer(nil,
		WithHost("127.0.0.1"),
		WithPort(0),
		WithRateLimiter(lim, 5*time.Millisecond, time.Second),
	)
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool {
		return lim.forgets.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(time.Second), lim.age.Load())

	require.NoError(t, s.Stop(context.Background()))
	n := lim.forgets.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, lim.forgets.Load())
}

func TestServerWithoutSweep(t *testing.T) {
	lim := &sweepLimiter{}
	s := NewServer(nil, WithHost("127.0.0.1"), WithPort(0), WithRateLimiter(lim, 0, 0))
	require.NoError(t, s.Start())
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.Zero(t, lim.forgets.Load())
}
