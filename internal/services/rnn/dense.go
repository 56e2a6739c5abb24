package rnn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

type dense struct {
	in, out int
	relu    bool

	kernel, bias *param

	xs, ys []*mat.Dense
}

func newDense(name string, in, out int, relu bool, rng *rand.Rand) *dense {
	d := &dense{
		in:     in,
		out:    out,
		relu:   relu,
		kernel: newParam(name+"/kernel", in, out, true),
		bias:   newParam(name+"/bias", 1, out, true),
	}
	glorotUniform(rng, d.kernel.w)
	return d
}

func (d *dense) params() []*param { return []*param{d.kernel, d.bias} }

func (d *dense) forward(xs []*mat.Dense, _ bool) []*mat.Dense {
	d.xs = xs
	d.ys = make([]*mat.Dense, len(xs))
	for t, x := range xs {
		batch, _ := x.Dims()
		y := mat.NewDense(batch, d.out, nil)
		y.Mul(x, d.kernel.w)
		addRowVector(y, d.bias.w)
		if d.relu {
			yd := raw(y)
			for i, v := range yd {
				if v < 0 {
					yd[i] = 0
				}
			}
		}
		d.ys[t] = y
	}
	return d.ys
}

func (d *dense) backward(dys []*mat.Dense) []*mat.Dense {
	dxs := make([]*mat.Dense, len(dys))
	for t, dy := range dys {
		g := mat.DenseCopyOf(dy)
		if d.relu {
			gd, yd := raw(g), raw(d.ys[t])
			for i := range gd {
				if yd[i] <= 0 {
					gd[i] = 0
				}
			}
		}
		addMul(d.kernel.g, d.xs[t].T(), g)
		accumulateColSums(d.bias.g, g)

		batch, _ := g.Dims()
		dx := mat.NewDense(batch, d.in, nil)
		dx.Mul(g, d.kernel.w.T())
		dxs[t] = dx
	}
	return dxs
}
