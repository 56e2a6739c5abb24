package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	"CryptoRNN/internal/services/features"
	"CryptoRNN/internal/services/frame"
	applogger "CryptoRNN/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// DatasetParams selects and shapes the data of one experiment.
type DatasetParams struct {
	Ratios         []string
	RatioToPredict string
	SeqLen         int
	FuturePeriod   int
	ValidationPct  float64
	Seed           int64
}

func (p DatasetParams) validate() error {
	if len(p.Ratios) == 0 {
		return fmt.Errorf("no ratios configured")
	}
	if !slices.Contains(p.Ratios, p.RatioToPredict) {
		return fmt.Errorf("ratio to predict %s: %w", p.RatioToPredict, models.ErrUnknownRatio)
	}
	if p.SeqLen < 1 || p.FuturePeriod < 1 {
		return fmt.Errorf("seq_len and future period must be positive")
	}
	return nil
}

// DatasetBuilder loads candles and runs the preparation pipeline.
type DatasetBuilder struct {
	source  domrepo.CandleSource
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewDatasetBuilder(source domrepo.CandleSource, metrics domrepo.Metrics, l *applogger.Logger) *DatasetBuilder {
	if l == nil {
		l = applogger.Nop()
	}
	return &DatasetBuilder{source: source, metrics: metrics, l: l}
}

// LoadFrame loads every ratio concurrently and joins them on the timestamps of
// the first ratio. Gaps are forward-filled; rows still incomplete are dropped.
func (b *DatasetBuilder) LoadFrame(ctx context.Context, p DatasetParams) (*frame.Frame, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	frames := make([]*frame.Frame, len(p.Ratios))
	g, gctx := errgroup.WithContext(ctx)
	for i, ratio := range p.Ratios {
		i, ratio := i, ratio
		g.Go(func() error {
			candles, err := b.source.Load(gctx, ratio)
			if err != nil {
				return fmt.Errorf("load %s: %w", ratio, err)
			}
			frames[i] = frame.FromCandles(ratio, candles)
			b.l.Debug("ratio loaded", applogger.String("ratio", ratio), applogger.Int("rows", frames[i].Len()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.recordError("load")
		return nil, err
	}

	joined := frames[0]
	for _, f := range frames[1:] {
		var err error
		if joined, err = joined.Join(f); err != nil {
			return nil, err
		}
	}
	joined = joined.ForwardFill().DropNA()
	if joined.Len() == 0 {
		return nil, fmt.Errorf("joined table is empty: %w", models.ErrNotEnoughData)
	}

	b.recordLatency("load", start)
	b.l.Info("market data joined",
		applogger.Strings("ratios", p.Ratios),
		applogger.Int("rows", joined.Len()),
		applogger.Strings("columns", joined.Columns()),
	)
	return joined, nil
}

// Labelled returns the joined table with future and target columns.
func (b *DatasetBuilder) Labelled(ctx context.Context, p DatasetParams) (*frame.Frame, error) {
	f, err := b.LoadFrame(ctx, p)
	if err != nil {
		return nil, err
	}
	return features.AddTarget(f, p.RatioToPredict, p.FuturePeriod)
}

// Build runs the full pipeline: label, split, then normalize, window and
// balance each split on its own.
func (b *DatasetBuilder) Build(ctx context.Context, p DatasetParams) (*models.PreparedData, error) {
	labelled, err := b.Labelled(ctx, p)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	trainFrame, valFrame, threshold, err := features.SplitChronological(labelled, p.ValidationPct)
	if err != nil {
		b.recordError("split")
		return nil, err
	}

	train, err := features.Prepare(trainFrame, p.SeqLen, rand.New(rand.NewSource(p.Seed)))
	if err != nil {
		b.recordError("prepare")
		return nil, fmt.Errorf("prepare train split: %w", err)
	}
	val, err := features.Prepare(valFrame, p.SeqLen, rand.New(rand.NewSource(p.Seed+1)))
	if err != nil {
		b.recordError("prepare")
		return nil, fmt.Errorf("prepare validation split: %w", err)
	}

	out := &models.PreparedData{
		Train:       train,
		Validation:  val,
		TrainCounts: models.Count(train.Y),
		ValCounts:   models.Count(val.Y),
		Threshold:   threshold,
		Rows:        labelled.Len(),
	}
	b.recordLatency("prepare", start)
	b.recordCounts("train", out.TrainCounts)
	b.recordCounts("validation", out.ValCounts)
	return out, nil
}

// Preview returns the first n rows of close, future and target of the
// predicted ratio.
func (b *DatasetBuilder) Preview(ctx context.Context, p DatasetParams, n int) ([]models.PreviewRow, error) {
	labelled, err := b.Labelled(ctx, p)
	if err != nil {
		return nil, err
	}
	head := labelled.Head(n)
	closes, _ := head.Col(frame.CloseColumn(p.RatioToPredict))
	future, _ := head.Col(features.FutureColumn)
	target, _ := head.Col(features.TargetColumn)

	rows := make([]models.PreviewRow, head.Len())
	for i, ts := range head.Index() {
		rows[i] = models.PreviewRow{Time: ts, Current: closes[i], Future: future[i], Target: int(target[i])}
	}
	return rows, nil
}

func (b *DatasetBuilder) recordCounts(split string, c models.ClassCounts) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordSequences(split, 0, c.DontBuys)
	b.metrics.RecordSequences(split, 1, c.Buys)
}

func (b *DatasetBuilder) recordLatency(stage string, start time.Time) {
	if b.metrics != nil {
		b.metrics.RecordLatency(stage, time.Since(start).Seconds())
	}
}

func (b *DatasetBuilder) recordError(kind string) {
	if b.metrics != nil {
		b.metrics.RecordError(kind)
	}
}
