package server

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"CryptoRNN/internal/domain/service"
	"CryptoRNN/internal/repository"
	"CryptoRNN/internal/services/rnn"
	"CryptoRNN/internal/usecase"
	"CryptoRNN/pkg/cache"
	"CryptoRNN/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCSVs writes n one-minute random-walk candles per ratio.
func writeCSVs(t *testing.T, dir string, ratios []string, n int) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	for _, r := range ratios {
		var buf bytes.Buffer
		price := 100.0
		for i := 0; i < n; i++ {
			price *= 1 + 0.01*rng.NormFloat64()
			vol := 10 + 5*rng.Float64()
			fmt.Fprintf(&buf, "%d,%f,%f,%f,%f,%f\n", 1528968660+60*i, price*0.99, price*1.01, price, price, vol)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, r+".csv"), buf.Bytes(), 0o644))
	}
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer, string) {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "crypto_data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Dataset.Dir = dataDir
	cfg.Dataset.SeqLen = 5
	cfg.Dataset.FuturePeriodPredict = 1
	cfg.Dataset.ValidationPct = 0.1
	cfg.Dataset.Seed = 3
	cfg.Training.Epochs = 2
	cfg.Training.BatchSize = 32
	cfg.Training.ModelsDir = filepath.Join(root, "models")
	cfg.Training.LogsDir = filepath.Join(root, "logs")
	require.NoError(t, cfg.Validate())

	writeCSVs(t, dataDir, cfg.Dataset.Ratios, 300)

	factory := func(features int) (service.Classifier, error) {
		return rnn.New(rnn.Config{
			Features:     features,
			LSTMUnits:    4,
			DenseUnits:   4,
			Classes:      2,
			Dropouts:     cfg.Model.Dropouts,
			DenseDropout: cfg.Model.DenseDropout,
			LearningRate: cfg.Model.LearningRate,
			BNMomentum:   cfg.Model.BNMomentum,
			BNEpsilon:    cfg.Model.BNEpsilon,
			Seed:         cfg.Dataset.Seed,
		})
	}

	registry := repository.NewCacheRunRegistry(cache.NewMemoryCache(), time.Minute)
	status := usecase.NewStatusTracker()
	trainer := usecase.NewTrainer(factory, repository.NewFileCheckpointStore(cfg.Training.ModelsDir), nil, nil,
		usecase.WithHistorySinks(repository.NewJSONLHistory(cfg.Training.LogsDir), status),
		usecase.WithCheckpointSinks(registry),
	)
	builder := usecase.NewDatasetBuilder(repository.NewCSVSource(dataDir, nil), nil, nil)
	uc := usecase.NewTrainingUseCase(builder, trainer, registry, status, usecase.TrainingConfig{
		Dataset: usecase.DatasetParams{
			Ratios:         cfg.Dataset.Ratios,
			RatioToPredict: cfg.Dataset.RatioToPredict,
			SeqLen:         cfg.Dataset.SeqLen,
			FuturePeriod:   cfg.Dataset.FuturePeriodPredict,
			ValidationPct:  cfg.Dataset.ValidationPct,
			Seed:           cfg.Dataset.Seed,
		},
		Train:     usecase.TrainParams{Epochs: cfg.Training.Epochs, BatchSize: cfg.Training.BatchSize, Seed: cfg.Dataset.Seed},
		RunPrefix: cfg.RunPrefix(),
		RunName:   cfg.RunName,
	}, nil)

	var out bytes.Buffer
	app := New(cfg, nil, uc, WithOutput(&out), WithResources(cache.NewMemoryCache(), nil, nil))
	return app, &out, root
}

func TestPreviewPrintsHeaderAndRows(t *testing.T) {
	app, out, _ := newTestApp(t)
	require.NoError(t, app.Preview(context.Background(), 5))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, []string{"time", "LTC-USD_close", "future", "target"}, strings.Fields(lines[0]))
	for _, l := range lines[1:] {
		f := strings.Fields(l)
		require.Len(t, f, 4)
		assert.Contains(t, []string{"0", "1"}, f[3])
	}
}

func TestPrepareReportsBalancedSplits(t *testing.T) {
	app, out, _ := newTestApp(t)
	require.NoError(t, app.Prepare(context.Background()))

	report := out.String()
	assert.Contains(t, report, "train data: ")
	assert.Contains(t, report, "VALIDATION Dont buys: ")

	var train, val, dont, buys, vdont, vbuys int
	_, err := fmt.Sscanf(report, "train data: %d validation: %d\nDont buys: %d, buys: %d\nVALIDATION Dont buys: %d, buys: %d\n",
		&train, &val, &dont, &buys, &vdont, &vbuys)
	require.NoError(t, err)
	assert.Equal(t, dont, buys)
	assert.Equal(t, vdont, vbuys)
	assert.Equal(t, train, dont+buys)
	assert.Equal(t, val, vdont+vbuys)
}

func TestTrainWritesModelsAndHistory(t *testing.T) {
	app, out, root := newTestApp(t)
	require.NoError(t, app.Train(context.Background()))
	require.NoError(t, app.Close())

	report := out.String()
	assert.Contains(t, report, "Test loss: ")
	assert.Contains(t, report, "Test accuracy: ")
	assert.Contains(t, report, "Best checkpoint: ")

	checkpoints, err := filepath.Glob(filepath.Join(root, "models", "RNN_Final-*.model"))
	require.NoError(t, err)
	assert.NotEmpty(t, checkpoints)

	finals, err := filepath.Glob(filepath.Join(root, "models", "5-SEQ-1-PRED-*"))
	require.NoError(t, err)
	require.Len(t, finals, 1)

	histories, err := filepath.Glob(filepath.Join(root, "logs", "5-SEQ-1-PRED-*", "history.jsonl"))
	require.NoError(t, err)
	require.Len(t, histories, 1)
	b, err := os.ReadFile(histories[0])
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(b), "\n"))
}

func TestTrainHonoursCancellation(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, app.Train(ctx), context.Canceled)
}
