package rnn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// lstm is a single LSTM layer with gates laid out as input, forget, cell, output.
type lstm struct {
	in, units int
	returnSeq bool

	kernel, recurrent, bias *param

	xs    []*mat.Dense
	hs    []*mat.Dense // hs[0] is the zero state, hs[t+1] the output of step t
	cs    []*mat.Dense
	gates []*mat.Dense // activated gates per step, batch×4H
	tanhC []*mat.Dense
}

func newLSTM(name string, in, units int, returnSeq bool, rng *rand.Rand) *lstm {
	l := &lstm{
		in:        in,
		units:     units,
		returnSeq: returnSeq,
		kernel:    newParam(name+"/kernel", in, 4*units, true),
		recurrent: newParam(name+"/recurrent_kernel", units, 4*units, true),
		bias:      newParam(name+"/bias", 1, 4*units, true),
	}
	glorotUniform(rng, l.kernel.w)
	orthogonal(rng, l.recurrent.w)
	b := raw(l.bias.w)
	for k := units; k < 2*units; k++ {
		b[k] = 1
	}
	return l
}

func (l *lstm) params() []*param { return []*param{l.kernel, l.recurrent, l.bias} }

func (l *lstm) forward(xs []*mat.Dense, _ bool) []*mat.Dense {
	steps := len(xs)
	batch, _ := xs[0].Dims()
	H := l.units

	l.xs = xs
	l.hs = make([]*mat.Dense, steps+1)
	l.cs = make([]*mat.Dense, steps+1)
	l.gates = make([]*mat.Dense, steps)
	l.tanhC = make([]*mat.Dense, steps)
	l.hs[0] = mat.NewDense(batch, H, nil)
	l.cs[0] = mat.NewDense(batch, H, nil)

	for t := 0; t < steps; t++ {
		z := mat.NewDense(batch, 4*H, nil)
		z.Mul(xs[t], l.kernel.w)
		addMul(z, l.hs[t], l.recurrent.w)
		addRowVector(z, l.bias.w)

		c := mat.NewDense(batch, H, nil)
		h := mat.NewDense(batch, H, nil)
		tc := mat.NewDense(batch, H, nil)
		zd, cPrev := raw(z), raw(l.cs[t])
		cd, hd, tcd := raw(c), raw(h), raw(tc)

		for r := 0; r < batch; r++ {
			g := zd[r*4*H : (r+1)*4*H]
			for k := 0; k < H; k++ {
				i := sigmoid(g[k])
				f := sigmoid(g[H+k])
				cand := math.Tanh(g[2*H+k])
				o := sigmoid(g[3*H+k])
				g[k], g[H+k], g[2*H+k], g[3*H+k] = i, f, cand, o

				idx := r*H + k
				cv := f*cPrev[idx] + i*cand
				tcv := math.Tanh(cv)
				cd[idx] = cv
				tcd[idx] = tcv
				hd[idx] = o * tcv
			}
		}

		l.gates[t] = z
		l.cs[t+1] = c
		l.hs[t+1] = h
		l.tanhC[t] = tc
	}

	if l.returnSeq {
		return l.hs[1:]
	}
	return []*mat.Dense{l.hs[steps]}
}

func (l *lstm) backward(dys []*mat.Dense) []*mat.Dense {
	steps := len(l.xs)
	batch, _ := l.xs[0].Dims()
	H := l.units

	dxs := make([]*mat.Dense, steps)
	dhNext := mat.NewDense(batch, H, nil)
	dcNext := mat.NewDense(batch, H, nil)

	for t := steps - 1; t >= 0; t-- {
		dh := mat.DenseCopyOf(dhNext)
		switch {
		case l.returnSeq:
			dh.Add(dh, dys[t])
		case t == steps-1:
			dh.Add(dh, dys[0])
		}

		dz := mat.NewDense(batch, 4*H, nil)
		dhd, dcd, dzd := raw(dh), raw(dcNext), raw(dz)
		gd, tcd, cPrev := raw(l.gates[t]), raw(l.tanhC[t]), raw(l.cs[t])

		for r := 0; r < batch; r++ {
			g := gd[r*4*H : (r+1)*4*H]
			out := dzd[r*4*H : (r+1)*4*H]
			for k := 0; k < H; k++ {
				i, f, cand, o := g[k], g[H+k], g[2*H+k], g[3*H+k]
				idx := r*H + k
				tcv := tcd[idx]

				dc := dcd[idx] + dhd[idx]*o*(1-tcv*tcv)
				out[k] = dc * cand * i * (1 - i)
				out[H+k] = dc * cPrev[idx] * f * (1 - f)
				out[2*H+k] = dc * i * (1 - cand*cand)
				out[3*H+k] = dhd[idx] * tcv * o * (1 - o)
				dcd[idx] = dc * f
			}
		}

		addMul(l.kernel.g, l.xs[t].T(), dz)
		addMul(l.recurrent.g, l.hs[t].T(), dz)
		accumulateColSums(l.bias.g, dz)

		dx := mat.NewDense(batch, l.in, nil)
		dx.Mul(dz, l.kernel.w.T())
		dxs[t] = dx

		next := mat.NewDense(batch, H, nil)
		next.Mul(dz, l.recurrent.w.T())
		dhNext = next
	}
	return dxs
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
