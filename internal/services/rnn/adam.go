package rnn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// adam is Adam with time-based learning rate decay lr/(1+decay*iterations).
type adam struct {
	lr, decay    float64
	beta1, beta2 float64
	eps          float64
	iterations   int64
}

func newAdam(lr, decay float64) *adam {
	return &adam{lr: lr, decay: decay, beta1: 0.9, beta2: 0.999, eps: 1e-7}
}

func (a *adam) currentLR() float64 {
	return a.lr / (1 + a.decay*float64(a.iterations))
}

func (a *adam) step(params []*param) {
	t := float64(a.iterations + 1)
	lrT := a.currentLR() * math.Sqrt(1-math.Pow(a.beta2, t)) / (1 - math.Pow(a.beta1, t))

	for _, p := range params {
		if !p.trainable {
			continue
		}
		if p.m == nil {
			r, c := p.w.Dims()
			p.m = mat.NewDense(r, c, nil)
			p.v = mat.NewDense(r, c, nil)
		}
		w, g, m, v := raw(p.w), raw(p.g), raw(p.m), raw(p.v)
		for i := range w {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			w[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.eps)
		}
	}
	a.iterations++
}
