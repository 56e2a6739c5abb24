// Package rnn implements the stacked LSTM classifier: forward and backward
// passes over gonum matrices, an Adam optimizer and checkpoint serialization.
//
// A sequence is a []*mat.Dense of length T whose elements are batch×features
// matrices. Layers that do not return sequences emit a length-1 slice.
package rnn

import (
	"gonum.org/v1/gonum/mat"
)

// param is a weight matrix with its gradient and Adam moments. Non-trainable
// params (batch norm moving statistics) are saved but never updated.
type param struct {
	name      string
	w         *mat.Dense
	g         *mat.Dense
	m, v      *mat.Dense
	trainable bool
}

func newParam(name string, r, c int, trainable bool) *param {
	p := &param{name: name, w: mat.NewDense(r, c, nil), trainable: trainable}
	if trainable {
		p.g = mat.NewDense(r, c, nil)
	}
	return p
}

type layer interface {
	forward(xs []*mat.Dense, training bool) []*mat.Dense
	backward(dys []*mat.Dense) []*mat.Dense
	params() []*param
}

// raw exposes the backing slice of a matrix allocated by this package. All
// such matrices are contiguous (stride == cols).
func raw(m *mat.Dense) []float64 {
	return m.RawMatrix().Data
}

func addRowVector(m *mat.Dense, row *mat.Dense) {
	r, c := m.Dims()
	d, b := raw(m), raw(row)
	for i := 0; i < r; i++ {
		off := i * c
		for j := 0; j < c; j++ {
			d[off+j] += b[j]
		}
	}
}

// accumulateColSums adds the column sums of m to the 1×c matrix dst.
func accumulateColSums(dst *mat.Dense, m *mat.Dense) {
	r, c := m.Dims()
	d, s := raw(m), raw(dst)
	for i := 0; i < r; i++ {
		off := i * c
		for j := 0; j < c; j++ {
			s[j] += d[off+j]
		}
	}
}

func addMul(dst *mat.Dense, a, b mat.Matrix) {
	var tmp mat.Dense
	tmp.Mul(a, b)
	dst.Add(dst, &tmp)
}
