package features

import (
	"fmt"

	"CryptoRNN/internal/domain/models"
	"CryptoRNN/internal/services/frame"
)

// ring is a fixed-capacity FIFO of feature rows; pushing onto a full ring
// evicts the oldest row.
type ring struct {
	rows  [][]float64
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{rows: make([][]float64, capacity)}
}

func (r *ring) push(row []float64) {
	c := len(r.rows)
	if r.size < c {
		r.rows[(r.start+r.size)%c] = row
		r.size++
		return
	}
	r.rows[r.start] = row
	r.start = (r.start + 1) % c
}

func (r *ring) full() bool { return r.size == len(r.rows) }

// snapshot copies the ring oldest first.
func (r *ring) snapshot() [][]float64 {
	out := make([][]float64, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.rows[(r.start+i)%len(r.rows)]
	}
	return out
}

// BuildSequences slides a seqLen window over the rows of f. Every row from the
// seqLen-th on yields one sequence labelled with that row's target.
func BuildSequences(f *frame.Frame, seqLen int) ([]models.Sequence, []string, error) {
	if seqLen < 1 {
		return nil, nil, fmt.Errorf("sequence length must be positive, got %d", seqLen)
	}
	target, ok := f.Col(TargetColumn)
	if !ok {
		return nil, nil, fmt.Errorf("build sequences: missing %s column", TargetColumn)
	}
	feats, err := f.Select(FeatureColumns(f)...)
	if err != nil {
		return nil, nil, err
	}

	n := f.Len() - seqLen + 1
	if n < 0 {
		n = 0
	}
	out := make([]models.Sequence, 0, n)
	w := newRing(seqLen)
	for i := 0; i < f.Len(); i++ {
		w.push(feats.Row(i))
		if w.full() {
			out = append(out, models.Sequence{Steps: w.snapshot(), Label: int(target[i])})
		}
	}
	return out, feats.Columns(), nil
}
