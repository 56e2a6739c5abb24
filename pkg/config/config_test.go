package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC-USD", "LTC-USD", "ETH-USD", "BCH-USD"}, c.Dataset.Ratios)
	assert.Equal(t, "LTC-USD", c.Dataset.RatioToPredict)
	assert.Equal(t, 60, c.Dataset.SeqLen)
	assert.Equal(t, 3, c.Dataset.FuturePeriodPredict)
	assert.InDelta(t, 0.05, c.Dataset.ValidationPct, 1e-12)
	assert.Equal(t, 128, c.Model.LSTMUnits)
	assert.Equal(t, []float64{0.2, 0.1, 0.2}, c.Model.Dropouts)
	assert.Equal(t, 10, c.Training.Epochs)
	assert.Equal(t, 64, c.Training.BatchSize)
	assert.Equal(t, 10*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, "memory", c.Cache.Backend)
}

func TestParseKeepsExplicitZeros(t *testing.T) {
	c, err := Parse([]byte(`
environment: test
model:
  decay: 0
  dense_dropout: 0
kafka:
  required_acks: 0
`))
	require.NoError(t, err)

	assert.Zero(t, c.Model.Decay)
	assert.Zero(t, c.Model.DenseDropout)
	assert.Zero(t, c.Kafka.RequiredAcks)
	assert.InDelta(t, 0.001, c.Model.LearningRate, 1e-12)
	assert.Equal(t, []float64{0.2, 0.1, 0.2}, c.Model.Dropouts)
}

func TestParseRejectsUnknownRatioToPredict(t *testing.T) {
	_, err := Parse([]byte(`
environment: test
dataset:
  ratios: [BTC-USD, ETH-USD]
  ratio_to_predict: LTC-USD
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratio_to_predict")
}

func TestParseRejectsBadValidationPct(t *testing.T) {
	_, err := Parse([]byte(`
environment: test
dataset:
  validation_pct: 1.5
`))
	require.Error(t, err)
}

func TestParseRequiresBaseURLForHTTPSource(t *testing.T) {
	_, err := Parse([]byte(`
environment: test
dataset:
  source: http
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o644))

	t.Setenv("SEQ_LEN", "30")
	t.Setenv("EPOCHS", "2")
	t.Setenv("RATIOS", "BTC-USD,ETH-USD")
	t.Setenv("RATIO_TO_PREDICT", "ETH-USD")
	t.Setenv("REDIS_ADDR", "cache:6380")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 30, c.Dataset.SeqLen)
	assert.Equal(t, 2, c.Training.Epochs)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, c.Dataset.Ratios)
	assert.Equal(t, "ETH-USD", c.Dataset.RatioToPredict)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, "cache", c.Cache.Host)
	assert.Equal(t, 6380, c.Cache.Port)
}

func TestRunName(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	got := c.RunName(time.Unix(1700000000, 0))
	assert.Equal(t, "60-SEQ-3-PRED-1700000000", got)
}
