package rnn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// dropout zeroes inputs with probability rate during training and scales the
// survivors by 1/(1-rate). Inference is the identity.
type dropout struct {
	rate  float64
	rng   *rand.Rand
	masks [][]float64
}

func newDropout(rate float64, rng *rand.Rand) *dropout {
	return &dropout{rate: rate, rng: rng}
}

func (d *dropout) params() []*param { return nil }

func (d *dropout) forward(xs []*mat.Dense, training bool) []*mat.Dense {
	if !training || d.rate == 0 {
		d.masks = nil
		return xs
	}
	scale := 1 / (1 - d.rate)
	d.masks = make([][]float64, len(xs))
	out := make([]*mat.Dense, len(xs))
	for t, x := range xs {
		y := mat.DenseCopyOf(x)
		yd := raw(y)
		mask := make([]float64, len(yd))
		for i := range yd {
			if d.rng.Float64() >= d.rate {
				mask[i] = scale
			}
			yd[i] *= mask[i]
		}
		d.masks[t] = mask
		out[t] = y
	}
	return out
}

func (d *dropout) backward(dys []*mat.Dense) []*mat.Dense {
	if d.masks == nil {
		return dys
	}
	out := make([]*mat.Dense, len(dys))
	for t, dy := range dys {
		g := mat.DenseCopyOf(dy)
		gd := raw(g)
		for i := range gd {
			gd[i] *= d.masks[t][i]
		}
		out[t] = g
	}
	return out
}
