package rnn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

func glorotUniform(rng *rand.Rand, w *mat.Dense) {
	r, c := w.Dims()
	limit := math.Sqrt(6 / float64(r+c))
	d := raw(w)
	for i := range d {
		d[i] = (rng.Float64()*2 - 1) * limit
	}
}

// orthogonal fills w (rows×cols, rows <= cols) with orthonormal rows taken from
// the QR decomposition of a gaussian matrix.
func orthogonal(rng *rand.Rand, w *mat.Dense) {
	rows, cols := w.Dims()
	a := mat.NewDense(cols, rows, nil)
	ad := raw(a)
	for i := range ad {
		ad[i] = rng.NormFloat64()
	}

	var qr mat.QR
	qr.Factorize(a)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	for j := 0; j < rows; j++ {
		sign := 1.0
		if r.At(j, j) < 0 {
			sign = -1
		}
		for i := 0; i < cols; i++ {
			w.Set(j, i, sign*q.At(i, j))
		}
	}
}
