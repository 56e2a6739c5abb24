package rnn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// batchNorm normalizes the last axis using statistics over batch and time.
type batchNorm struct {
	dim      int
	momentum float64
	eps      float64

	gamma, beta            *param
	movingMean, movingVar *param

	xhat   []*mat.Dense
	invStd []float64
}

func newBatchNorm(name string, dim int, momentum, eps float64) *batchNorm {
	bn := &batchNorm{
		dim:        dim,
		momentum:   momentum,
		eps:        eps,
		gamma:      newParam(name+"/gamma", 1, dim, true),
		beta:       newParam(name+"/beta", 1, dim, true),
		movingMean: newParam(name+"/moving_mean", 1, dim, false),
		movingVar:  newParam(name+"/moving_variance", 1, dim, false),
	}
	for k := 0; k < dim; k++ {
		bn.gamma.w.Set(0, k, 1)
		bn.movingVar.w.Set(0, k, 1)
	}
	return bn
}

func (bn *batchNorm) params() []*param {
	return []*param{bn.gamma, bn.beta, bn.movingMean, bn.movingVar}
}

func (bn *batchNorm) forward(xs []*mat.Dense, training bool) []*mat.Dense {
	D := bn.dim
	mean := make([]float64, D)
	variance := make([]float64, D)

	if training {
		n := 0
		for _, x := range xs {
			r, _ := x.Dims()
			n += r
			xd := raw(x)
			for i, v := range xd {
				mean[i%D] += v
			}
		}
		for k := range mean {
			mean[k] /= float64(n)
		}
		for _, x := range xs {
			for i, v := range raw(x) {
				d := v - mean[i%D]
				variance[i%D] += d * d
			}
		}
		mm, mv := raw(bn.movingMean.w), raw(bn.movingVar.w)
		for k := range variance {
			variance[k] /= float64(n)
			mm[k] = mm[k]*bn.momentum + mean[k]*(1-bn.momentum)
			mv[k] = mv[k]*bn.momentum + variance[k]*(1-bn.momentum)
		}
	} else {
		copy(mean, raw(bn.movingMean.w))
		copy(variance, raw(bn.movingVar.w))
	}

	invStd := make([]float64, D)
	for k := range invStd {
		invStd[k] = 1 / math.Sqrt(variance[k]+bn.eps)
	}
	gamma, beta := raw(bn.gamma.w), raw(bn.beta.w)

	out := make([]*mat.Dense, len(xs))
	var xhat []*mat.Dense
	if training {
		xhat = make([]*mat.Dense, len(xs))
	}
	for t, x := range xs {
		r, _ := x.Dims()
		h := mat.NewDense(r, D, nil)
		y := mat.NewDense(r, D, nil)
		xd, hd, yd := raw(x), raw(h), raw(y)
		for i, v := range xd {
			k := i % D
			hd[i] = (v - mean[k]) * invStd[k]
			yd[i] = gamma[k]*hd[i] + beta[k]
		}
		if training {
			xhat[t] = h
		}
		out[t] = y
	}
	bn.xhat = xhat
	bn.invStd = invStd
	return out
}

func (bn *batchNorm) backward(dys []*mat.Dense) []*mat.Dense {
	D := bn.dim
	sumDy := make([]float64, D)
	sumDyXhat := make([]float64, D)
	n := 0
	for t, dy := range dys {
		r, _ := dy.Dims()
		n += r
		hd := raw(bn.xhat[t])
		for i, g := range raw(dy) {
			sumDy[i%D] += g
			sumDyXhat[i%D] += g * hd[i]
		}
	}

	gg, bg := raw(bn.gamma.g), raw(bn.beta.g)
	for k := 0; k < D; k++ {
		gg[k] += sumDyXhat[k]
		bg[k] += sumDy[k]
	}

	gamma := raw(bn.gamma.w)
	N := float64(n)
	out := make([]*mat.Dense, len(dys))
	for t, dy := range dys {
		r, _ := dy.Dims()
		dx := mat.NewDense(r, D, nil)
		dxd, hd := raw(dx), raw(bn.xhat[t])
		for i, g := range raw(dy) {
			k := i % D
			dxd[i] = gamma[k] * bn.invStd[k] / N * (N*g - sumDy[k] - hd[i]*sumDyXhat[k])
		}
		out[t] = dx
	}
	return out
}
