package rnn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// softmaxRow writes the softmax of logits into dst.
func softmaxRow(dst, logits []float64) {
	hi := math.Inf(-1)
	for _, v := range logits {
		if v > hi {
			hi = v
		}
	}
	var sum float64
	for i, v := range logits {
		dst[i] = math.Exp(v - hi)
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// crossEntropy is the mean sparse categorical cross-entropy of softmax(logits).
// grad is d(loss)/d(logits).
func crossEntropy(logits *mat.Dense, y []int) (loss float64, correct int, grad *mat.Dense) {
	batch, classes := logits.Dims()
	grad = mat.NewDense(batch, classes, nil)
	ld, gd := raw(logits), raw(grad)

	for r := 0; r < batch; r++ {
		row := ld[r*classes : (r+1)*classes]
		p := gd[r*classes : (r+1)*classes]
		softmaxRow(p, row)
		loss -= math.Log(math.Max(p[y[r]], 1e-7))
		if argmax(p) == y[r] {
			correct++
		}
		p[y[r]] -= 1
		for k := range p {
			p[k] /= float64(batch)
		}
	}
	return loss / float64(batch), correct, grad
}
