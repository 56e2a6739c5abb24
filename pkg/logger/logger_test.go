package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel, "json", "")

	l.Info("epoch done", Int("epoch", 3), Float64("val_acc", 0.553), String("run", "60-SEQ-3-PRED-1"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "epoch done", entry["message"])
	assert.Equal(t, float64(3), entry["epoch"])
	assert.InDelta(t, 0.553, entry["val_acc"], 1e-9)
	assert.Equal(t, "60-SEQ-3-PRED-1", entry["run"])
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel, "json", "")
	l.Debug("hidden")
	assert.Zero(t, buf.Len())
}

type capturePublisher struct {
	mu    sync.Mutex
	calls int
	logs  []AggregatedLogEntry
}

func (p *capturePublisher) Publish(_ context.Context, _ string, _ []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.logs = append(p.logs, value.([]AggregatedLogEntry)...)
	return nil
}

func TestCollectorAggregatesDuplicateErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := NewWithWriter(&bytes.Buffer{}, zerolog.InfoLevel, "json", "")
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 5; i++ {
		l.Error("history sink failed", Error(errors.New("connection refused")))
	}
	assert.Equal(t, 1, l.collector.Pending())

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Equal(t, 1, pub.calls)
	require.Len(t, pub.logs, 1)
	assert.Equal(t, 5, pub.logs[0].Count)
	assert.Equal(t, "history sink failed", pub.logs[0].Message)
}
