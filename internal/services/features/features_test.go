package features

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"CryptoRNN/internal/domain/models"
	"CryptoRNN/internal/services/frame"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func rampFrame(t *testing.T, closes []float64) *frame.Frame {
	t.Helper()
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{Time: time.Unix(int64(60*(i+1)), 0), Close: c, Volume: 100 + float64(i%3)}
	}
	return frame.FromCandles("LTC-USD", candles)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, 1, Classify(10, 11))
	assert.Equal(t, 0, Classify(10, 10))
	assert.Equal(t, 0, Classify(10, 9))
}

func TestAddTargetDropsRowsWithoutFuture(t *testing.T) {
	f := rampFrame(t, []float64{1, 3, 2, 5, 4, 6})

	out, err := AddTarget(f, "LTC-USD", 3)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	future, _ := out.Col(FutureColumn)
	target, _ := out.Col(TargetColumn)
	assert.Equal(t, []float64{5, 4, 6}, future)
	assert.Equal(t, []float64{1, 1, 1}, target)
}

func TestAddTargetUnknownRatio(t *testing.T) {
	_, err := AddTarget(rampFrame(t, []float64{1, 2}), "DOGE-USD", 1)
	assert.True(t, errors.Is(err, models.ErrUnknownRatio))
}

func TestValidationThreshold(t *testing.T) {
	times := make([]int64, 100)
	for i := range times {
		times[i] = int64(99-i) * 60
	}
	th, err := ValidationThreshold(times, 0.05)
	require.NoError(t, err)
	assert.Equal(t, int64(95*60), th)

	_, err = ValidationThreshold(times[:10], 0.05)
	assert.True(t, errors.Is(err, models.ErrNotEnoughData))
}

func TestSplitChronologicalPartitions(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	train, val, th, err := SplitChronological(rampFrame(t, closes), 0.1)
	require.NoError(t, err)

	assert.Equal(t, 36, train.Len())
	assert.Equal(t, 4, val.Len())
	for _, ts := range train.Index() {
		assert.Less(t, ts, th)
	}
	for _, ts := range val.Index() {
		assert.GreaterOrEqual(t, ts, th)
	}
}

func TestPctChangeAndScale(t *testing.T) {
	pc := PctChange([]float64{2, 4, 3})
	assert.True(t, math.IsNaN(pc[0]))
	assert.InDelta(t, 1.0, pc[1], 1e-12)
	assert.InDelta(t, -0.25, pc[2], 1e-12)

	s := Scale([]float64{1, 2, 3, 4})
	var mean, sq float64
	for _, v := range s {
		mean += v
	}
	mean /= 4
	for _, v := range s {
		sq += (v - mean) * (v - mean)
	}
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, sq/4, 1e-12)

	assert.Equal(t, []float64{0, 0, 0}, Scale([]float64{7, 7, 7}))
}

func TestNormalizeDropsNonFiniteRows(t *testing.T) {
	f := frame.New([]int64{1, 2, 3, 4, 5})
	require.NoError(t, f.AddColumn("a_close", []float64{1, 2, 4, 8, 16}))
	require.NoError(t, f.AddColumn("a_volume", []float64{1, 0, 1, 2, 4}))
	require.NoError(t, f.AddColumn(FutureColumn, []float64{9, 9, 9, 9, 9}))
	require.NoError(t, f.AddColumn(TargetColumn, []float64{1, 0, 1, 0, 1}))

	out, err := Normalize(f)
	require.NoError(t, err)

	// row 1 is the first row, row 3 divides by the zero volume of row 2
	assert.Equal(t, []int64{2, 4, 5}, out.Index())
	assert.Equal(t, []string{"a_close", "a_volume", TargetColumn}, out.Columns())

	target, _ := out.Col(TargetColumn)
	assert.Equal(t, []float64{0, 0, 1}, target)
	for _, c := range []string{"a_close", "a_volume"} {
		v, _ := out.Col(c)
		for _, x := range v {
			assert.False(t, math.IsNaN(x) || math.IsInf(x, 0))
		}
	}
}

func TestNormalizeDropsOnlyLeadingRowThenScales(t *testing.T) {
	const n = 40
	rng := rand.New(rand.NewSource(5))
	index := make([]int64, n)
	cols := make(map[string][]float64)
	for i := range index {
		index[i] = int64(60 * (i + 1))
	}
	f := frame.New(index)
	for _, name := range []string{"BTC-USD_close", "BTC-USD_volume", "LTC-USD_close", "LTC-USD_volume"} {
		v := make([]float64, n)
		for i := range v {
			v[i] = 50 + 10*rng.Float64()
		}
		cols[name] = v
		require.NoError(t, f.AddColumn(name, v))
	}
	target := make([]float64, n)
	for i := range target {
		target[i] = float64(i % 2)
	}
	require.NoError(t, f.AddColumn(FutureColumn, make([]float64, n)))
	require.NoError(t, f.AddColumn(TargetColumn, target))

	out, err := Normalize(f)
	require.NoError(t, err)
	require.Equal(t, n-1, out.Len())
	assert.Equal(t, index[1:], out.Index())

	gotTarget, _ := out.Col(TargetColumn)
	assert.Equal(t, target[1:], gotTarget)

	for name, raw := range cols {
		got, _ := out.Col(name)
		mean, std := stat.PopMeanStdDev(got, nil)
		assert.InDelta(t, 0, mean, 1e-9, name)
		assert.InDelta(t, 1, std, 1e-9, name)

		want := Scale(PctChange(raw)[1:])
		assert.InDeltaSlice(t, want, got, 1e-12, name)
	}
}

func TestBuildSequencesWindowOrder(t *testing.T) {
	f := frame.New([]int64{1, 2, 3, 4})
	require.NoError(t, f.AddColumn("x", []float64{10, 20, 30, 40}))
	require.NoError(t, f.AddColumn(TargetColumn, []float64{0, 1, 0, 1}))

	seqs, cols, err := BuildSequences(f, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, cols)

	want := []models.Sequence{
		{Steps: [][]float64{{10}, {20}, {30}}, Label: 0},
		{Steps: [][]float64{{20}, {30}, {40}}, Label: 1},
	}
	if diff := cmp.Diff(want, seqs); diff != "" {
		t.Fatalf("sequences mismatch (-want +got):\n%s", diff)
	}

	short, _, err := BuildSequences(f, 5)
	require.NoError(t, err)
	assert.Empty(t, short)
}

func TestBalanceEqualizesClasses(t *testing.T) {
	var seqs []models.Sequence
	for i := 0; i < 30; i++ {
		label := 0
		if i%3 == 0 {
			label = 1
		}
		seqs = append(seqs, models.Sequence{Steps: [][]float64{{float64(i)}}, Label: label})
	}

	out, err := Balance(rand.New(rand.NewSource(1)), seqs)
	require.NoError(t, err)
	counts := models.Count(labels(out))
	assert.Equal(t, models.ClassCounts{DontBuys: 10, Buys: 10}, counts)

	seen := map[float64]bool{}
	for _, s := range out {
		assert.False(t, seen[s.Steps[0][0]], "duplicate sample")
		seen[s.Steps[0][0]] = true
	}
}

func TestBalanceEmptyClass(t *testing.T) {
	seqs := []models.Sequence{{Label: 1}, {Label: 1}}
	_, err := Balance(rand.New(rand.NewSource(1)), seqs)
	assert.True(t, errors.Is(err, models.ErrEmptyClass))
}

func TestPrepareIsDeterministicPerSeed(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/3) + float64(i%7)
	}
	labelled, err := AddTarget(rampFrame(t, closes), "LTC-USD", 3)
	require.NoError(t, err)

	a, err := Prepare(labelled, 20, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := Prepare(labelled, 20, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	if diff := cmp.Diff(a, b, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("same seed produced different datasets:\n%s", diff)
	}
	counts := models.Count(a.Y)
	assert.Equal(t, counts.Buys, counts.DontBuys)
	assert.Equal(t, []string{"LTC-USD_close", "LTC-USD_volume"}, a.Features)
	for _, x := range a.X {
		require.Len(t, x, 20)
		require.Len(t, x[0], 2)
	}
}

func TestPrepareTooShort(t *testing.T) {
	labelled, err := AddTarget(rampFrame(t, []float64{1, 2, 3, 2, 1, 2, 3, 4}), "LTC-USD", 1)
	require.NoError(t, err)
	_, err = Prepare(labelled, 60, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, models.ErrNotEnoughData))
}

func labels(seqs []models.Sequence) []int {
	out := make([]int, len(seqs))
	for i, s := range seqs {
		out[i] = s.Label
	}
	return out
}
