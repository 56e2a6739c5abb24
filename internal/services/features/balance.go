package features

import (
	"fmt"
	"math/rand"

	"CryptoRNN/internal/domain/models"
)

// Shuffle permutes seqs in place.
func Shuffle(rng *rand.Rand, seqs []models.Sequence) {
	rng.Shuffle(len(seqs), func(i, j int) { seqs[i], seqs[j] = seqs[j], seqs[i] })
}

// Balance shuffles seqs, truncates both label classes to the minority count
// and shuffles the result again.
func Balance(rng *rand.Rand, seqs []models.Sequence) ([]models.Sequence, error) {
	Shuffle(rng, seqs)

	var buys, sells []models.Sequence
	for _, s := range seqs {
		if s.Label == 1 {
			buys = append(buys, s)
		} else {
			sells = append(sells, s)
		}
	}

	lower := len(buys)
	if len(sells) < lower {
		lower = len(sells)
	}
	if lower == 0 {
		return nil, fmt.Errorf("%d buys, %d sells: %w", len(buys), len(sells), models.ErrEmptyClass)
	}

	out := make([]models.Sequence, 0, 2*lower)
	out = append(out, buys[:lower]...)
	out = append(out, sells[:lower]...)
	Shuffle(rng, out)
	return out, nil
}
