package features

import (
	"fmt"
	"math/rand"

	"CryptoRNN/internal/domain/models"
	"CryptoRNN/internal/services/frame"
)

// Prepare turns one labelled split into a balanced, shuffled dataset.
func Prepare(f *frame.Frame, seqLen int, rng *rand.Rand) (models.Dataset, error) {
	norm, err := Normalize(f)
	if err != nil {
		return models.Dataset{}, err
	}

	seqs, cols, err := BuildSequences(norm, seqLen)
	if err != nil {
		return models.Dataset{}, err
	}
	if len(seqs) == 0 {
		return models.Dataset{}, fmt.Errorf("%d rows are shorter than one %d-step sequence: %w", norm.Len(), seqLen, models.ErrNotEnoughData)
	}

	balanced, err := Balance(rng, seqs)
	if err != nil {
		return models.Dataset{}, err
	}

	ds := models.Dataset{
		X:        make([][][]float64, len(balanced)),
		Y:        make([]int, len(balanced)),
		Features: cols,
	}
	for i, s := range balanced {
		ds.X[i] = s.Steps
		ds.Y[i] = s.Label
	}
	return ds, nil
}
