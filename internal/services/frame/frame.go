// Package frame is a minimal time-indexed table of float64 columns.
// Missing values are NaN.
package frame

import (
	"fmt"
	"math"
	"sort"

	"CryptoRNN/internal/domain/models"
)

// Frame is a table indexed by ascending unix timestamps.
type Frame struct {
	index []int64
	names []string
	cols  map[string][]float64
}

// New creates an empty frame over index. The index must be sorted and unique.
func New(index []int64) *Frame {
	idx := make([]int64, len(index))
	copy(idx, index)
	return &Frame{index: idx, cols: make(map[string][]float64)}
}

// FromCandles builds the two-column frame {ratio}_close, {ratio}_volume.
// Candles are sorted by time; for duplicate timestamps the last one wins.
func FromCandles(ratio string, candles []models.Candle) *Frame {
	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Unix() < sorted[j].Unix() })

	index := make([]int64, 0, len(sorted))
	closes := make([]float64, 0, len(sorted))
	vols := make([]float64, 0, len(sorted))
	for _, c := range sorted {
		t := c.Unix()
		if n := len(index); n > 0 && index[n-1] == t {
			closes[n-1] = c.Close
			vols[n-1] = c.Volume
			continue
		}
		index = append(index, t)
		closes = append(closes, c.Close)
		vols = append(vols, c.Volume)
	}

	f := &Frame{index: index, cols: make(map[string][]float64, 2)}
	f.set(CloseColumn(ratio), closes)
	f.set(VolumeColumn(ratio), vols)
	return f
}

// CloseColumn names the close column of ratio.
func CloseColumn(ratio string) string { return ratio + "_close" }

// VolumeColumn names the volume column of ratio.
func VolumeColumn(ratio string) string { return ratio + "_volume" }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.index) }

// Index returns the row timestamps. The slice must not be modified.
func (f *Frame) Index() []int64 { return f.index }

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Col returns the values of a column. The slice must not be modified.
func (f *Frame) Col(name string) ([]float64, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// AddColumn appends or replaces a column.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != len(f.index) {
		return fmt.Errorf("column %s has %d values for %d rows: %w", name, len(values), len(f.index), models.ErrShapeMismatch)
	}
	v := make([]float64, len(values))
	copy(v, values)
	f.set(name, v)
	return nil
}

// DropColumn returns a frame without name. Missing names are ignored.
func (f *Frame) DropColumn(name string) *Frame {
	out := &Frame{index: f.index, cols: make(map[string][]float64, len(f.cols))}
	for _, n := range f.names {
		if n != name {
			out.set(n, f.cols[n])
		}
	}
	return out
}

// Select returns a frame holding only the given columns, in that order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{index: f.index, cols: make(map[string][]float64, len(names))}
	for _, n := range names {
		c, ok := f.cols[n]
		if !ok {
			return nil, fmt.Errorf("select %s: no such column", n)
		}
		out.set(n, c)
	}
	return out, nil
}

// Join left-joins other onto f by timestamp. Rows of f without a match get
// NaN in other's columns.
func (f *Frame) Join(other *Frame) (*Frame, error) {
	for _, n := range other.names {
		if _, dup := f.cols[n]; dup {
			return nil, fmt.Errorf("join: duplicate column %s", n)
		}
	}

	pos := make(map[int64]int, len(other.index))
	for i, t := range other.index {
		pos[t] = i
	}

	out := &Frame{index: f.index, cols: make(map[string][]float64, len(f.cols)+len(other.cols))}
	for _, n := range f.names {
		out.set(n, f.cols[n])
	}
	for _, n := range other.names {
		src := other.cols[n]
		dst := make([]float64, len(f.index))
		for i, t := range f.index {
			if j, ok := pos[t]; ok {
				dst[i] = src[j]
			} else {
				dst[i] = math.NaN()
			}
		}
		out.set(n, dst)
	}
	return out, nil
}

// ForwardFill replaces NaN with the last seen value of the same column.
// Leading NaNs stay.
func (f *Frame) ForwardFill() *Frame {
	out := &Frame{index: f.index, cols: make(map[string][]float64, len(f.cols))}
	for _, n := range f.names {
		src := f.cols[n]
		dst := make([]float64, len(src))
		last := math.NaN()
		for i, v := range src {
			if math.IsNaN(v) {
				dst[i] = last
				continue
			}
			dst[i] = v
			last = v
		}
		out.set(n, dst)
	}
	return out
}

// DropNA drops rows holding NaN or ±Inf in any of cols, or in any column when
// cols is empty.
func (f *Frame) DropNA(cols ...string) *Frame {
	if len(cols) == 0 {
		cols = f.names
	}
	return f.Filter(func(i int) bool {
		for _, n := range cols {
			c, ok := f.cols[n]
			if !ok {
				continue
			}
			v := c[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
		return true
	})
}

// Filter keeps the rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	rows := make([]int, 0, len(f.index))
	for i := range f.index {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return f.take(rows)
}

// Shift returns column name moved by n rows: out[i] = col[i-n]. A negative n
// looks into the future. Rows shifted in from outside the frame are NaN.
func (f *Frame) Shift(name string, n int) ([]float64, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("shift %s: no such column", name)
	}
	out := make([]float64, len(c))
	for i := range out {
		j := i - n
		if j < 0 || j >= len(c) {
			out[i] = math.NaN()
			continue
		}
		out[i] = c[j]
	}
	return out, nil
}

// Before returns the rows with index < t.
func (f *Frame) Before(t int64) *Frame {
	k := sort.Search(len(f.index), func(i int) bool { return f.index[i] >= t })
	return f.slice(0, k)
}

// From returns the rows with index >= t.
func (f *Frame) From(t int64) *Frame {
	k := sort.Search(len(f.index), func(i int) bool { return f.index[i] >= t })
	return f.slice(k, len(f.index))
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > len(f.index) {
		n = len(f.index)
	}
	if n < 0 {
		n = 0
	}
	return f.slice(0, n)
}

// Row returns the values of row i in column order.
func (f *Frame) Row(i int) []float64 {
	out := make([]float64, len(f.names))
	for j, n := range f.names {
		out[j] = f.cols[n][i]
	}
	return out
}

func (f *Frame) set(name string, values []float64) {
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = values
}

func (f *Frame) slice(lo, hi int) *Frame {
	out := &Frame{index: f.index[lo:hi:hi], cols: make(map[string][]float64, len(f.cols))}
	for _, n := range f.names {
		c := f.cols[n]
		out.set(n, c[lo:hi:hi])
	}
	return out
}

func (f *Frame) take(rows []int) *Frame {
	idx := make([]int64, len(rows))
	for k, i := range rows {
		idx[k] = f.index[i]
	}
	out := &Frame{index: idx, cols: make(map[string][]float64, len(f.cols))}
	for _, n := range f.names {
		src := f.cols[n]
		dst := make([]float64, len(rows))
		for k, i := range rows {
			dst[k] = src[i]
		}
		out.set(n, dst)
	}
	return out
}
