package frame

import (
	"errors"
	"math"
	"testing"
	"time"

	"CryptoRNN/internal/domain/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func candle(ts int64, closeV, vol float64) models.Candle {
	return models.Candle{Time: time.Unix(ts, 0), Close: closeV, Volume: vol}
}

var nanEqual = cmpopts.EquateNaNs()

func TestFromCandlesSortsAndKeepsLastDuplicate(t *testing.T) {
	f := FromCandles("BTC-USD", []models.Candle{
		candle(120, 3, 30),
		candle(60, 1, 10),
		candle(120, 4, 40),
		candle(180, 5, 50),
	})

	if diff := cmp.Diff([]int64{60, 120, 180}, f.Index()); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"BTC-USD_close", "BTC-USD_volume"}, f.Columns()); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	closes, _ := f.Col("BTC-USD_close")
	if diff := cmp.Diff([]float64{1, 4, 5}, closes); diff != "" {
		t.Fatalf("close mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinIsLeftOnReceiver(t *testing.T) {
	a := FromCandles("A", []models.Candle{candle(1, 10, 1), candle(2, 11, 1), candle(3, 12, 1)})
	b := FromCandles("B", []models.Candle{candle(2, 20, 2), candle(3, 21, 2), candle(4, 22, 2)})

	j, err := a.Join(b)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, j.Index()); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
	got, _ := j.Col("B_close")
	if diff := cmp.Diff([]float64{math.NaN(), 20, 21}, got, nanEqual); diff != "" {
		t.Fatalf("B_close mismatch (-want +got):\n%s", diff)
	}

	if _, err := j.Join(b); err == nil {
		t.Fatalf("expected duplicate column error")
	}
}

func TestForwardFillThenDropNA(t *testing.T) {
	f := New([]int64{1, 2, 3, 4})
	nan := math.NaN()
	if err := f.AddColumn("x", []float64{nan, 1, nan, 3}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddColumn("y", []float64{5, nan, 6, math.Inf(1)}); err != nil {
		t.Fatal(err)
	}

	filled := f.ForwardFill()
	x, _ := filled.Col("x")
	if diff := cmp.Diff([]float64{nan, 1, 1, 3}, x, nanEqual); diff != "" {
		t.Fatalf("ffill mismatch (-want +got):\n%s", diff)
	}

	clean := filled.DropNA()
	if diff := cmp.Diff([]int64{2, 3}, clean.Index()); diff != "" {
		t.Fatalf("dropna index mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 5}, clean.Row(0)); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestShift(t *testing.T) {
	f := New([]int64{1, 2, 3, 4, 5})
	_ = f.AddColumn("c", []float64{1, 2, 3, 4, 5})

	future, err := f.Shift("c", -3)
	if err != nil {
		t.Fatal(err)
	}
	nan := math.NaN()
	if diff := cmp.Diff([]float64{4, 5, nan, nan, nan}, future, nanEqual); diff != "" {
		t.Fatalf("shift -3 mismatch (-want +got):\n%s", diff)
	}

	past, _ := f.Shift("c", 1)
	if diff := cmp.Diff([]float64{nan, 1, 2, 3, 4}, past, nanEqual); diff != "" {
		t.Fatalf("shift 1 mismatch (-want +got):\n%s", diff)
	}

	if _, err := f.Shift("missing", 1); err == nil {
		t.Fatalf("expected error for unknown column")
	}
}

func TestBeforeFromPartitionIndex(t *testing.T) {
	f := New([]int64{10, 20, 30, 40})
	_ = f.AddColumn("c", []float64{1, 2, 3, 4})

	before, from := f.Before(30), f.From(30)
	if diff := cmp.Diff([]int64{10, 20}, before.Index()); diff != "" {
		t.Fatalf("before mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{30, 40}, from.Index()); diff != "" {
		t.Fatalf("from mismatch (-want +got):\n%s", diff)
	}
	if before.Len()+from.Len() != f.Len() {
		t.Fatalf("split lost rows")
	}
}

func TestAddColumnShapeMismatch(t *testing.T) {
	f := New([]int64{1, 2})
	err := f.AddColumn("c", []float64{1})
	if !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestHeadAndDropColumn(t *testing.T) {
	f := New([]int64{1, 2, 3})
	_ = f.AddColumn("a", []float64{1, 2, 3})
	_ = f.AddColumn("b", []float64{4, 5, 6})

	h := f.Head(2).DropColumn("a")
	if diff := cmp.Diff([]string{"b"}, h.Columns()); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", h.Len())
	}
	if f.Head(10).Len() != 3 {
		t.Fatalf("head beyond length should clamp")
	}
}
