package rnn

import (
	"fmt"
	"math/rand"
	"sync"

	"CryptoRNN/internal/domain/models"

	"gonum.org/v1/gonum/mat"
)

// Config describes the network. It is stored in checkpoints.
type Config struct {
	Features     int       `json:"features"`
	LSTMUnits    int       `json:"lstm_units"`
	DenseUnits   int       `json:"dense_units"`
	Classes      int       `json:"classes"`
	Dropouts     []float64 `json:"dropouts"`
	DenseDropout float64   `json:"dense_dropout"`
	LearningRate float64   `json:"learning_rate"`
	Decay        float64   `json:"decay"`
	BNMomentum   float64   `json:"bn_momentum"`
	BNEpsilon    float64   `json:"bn_epsilon"`
	Seed         int64     `json:"seed"`
}

func (c Config) validate() error {
	if c.Features < 1 || c.LSTMUnits < 1 || c.DenseUnits < 1 || c.Classes < 2 {
		return fmt.Errorf("invalid layer sizes %+v", c)
	}
	if len(c.Dropouts) != 3 {
		return fmt.Errorf("need 3 lstm dropouts, got %d", len(c.Dropouts))
	}
	for _, r := range append([]float64{c.DenseDropout}, c.Dropouts...) {
		if r < 0 || r >= 1 {
			return fmt.Errorf("dropout rate %v out of [0,1)", r)
		}
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive")
	}
	return nil
}

// Model is LSTM → Dropout → BN, three times, then Dense(relu) → Dropout →
// Dense(logits). Methods are safe for concurrent use.
type Model struct {
	mu     sync.Mutex
	cfg    Config
	layers []layer
	opt    *adam
	rng    *rand.Rand
}

// New builds a freshly initialized model.
func New(cfg Config) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	u := cfg.LSTMUnits

	m := &Model{cfg: cfg, opt: newAdam(cfg.LearningRate, cfg.Decay), rng: rng}
	m.layers = []layer{
		newLSTM("lstm_1", cfg.Features, u, true, rng),
		newDropout(cfg.Dropouts[0], rng),
		newBatchNorm("batch_normalization_1", u, cfg.BNMomentum, cfg.BNEpsilon),
		newLSTM("lstm_2", u, u, true, rng),
		newDropout(cfg.Dropouts[1], rng),
		newBatchNorm("batch_normalization_2", u, cfg.BNMomentum, cfg.BNEpsilon),
		newLSTM("lstm_3", u, u, false, rng),
		newDropout(cfg.Dropouts[2], rng),
		newBatchNorm("batch_normalization_3", u, cfg.BNMomentum, cfg.BNEpsilon),
		newDense("dense_1", u, cfg.DenseUnits, true, rng),
		newDropout(cfg.DenseDropout, rng),
		newDense("dense_2", cfg.DenseUnits, cfg.Classes, false, rng),
	}
	return m, nil
}

// Config returns the model configuration.
func (m *Model) Config() Config { return m.cfg }

// LearningRate returns the decayed learning rate of the next step.
func (m *Model) LearningRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opt.currentLR()
}

// TrainBatch runs one forward/backward pass and an Adam step.
func (m *Model) TrainBatch(x [][][]float64, y []int) (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq, err := m.toSequence(x, y)
	if err != nil {
		return 0, 0, err
	}
	loss, correct := m.lossAndGrad(seq, y)
	m.opt.step(m.allParams())
	return loss, float64(correct) / float64(len(y)), nil
}

// Evaluate computes mean loss and accuracy in inference mode.
func (m *Model) Evaluate(x [][][]float64, y []int, batchSize int) (float64, float64, error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("%d samples, %d labels: %w", len(x), len(y), models.ErrShapeMismatch)
	}
	if len(x) == 0 {
		return 0, 0, fmt.Errorf("evaluate: %w", models.ErrNotEnoughData)
	}
	if batchSize < 1 {
		batchSize = len(x)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var total float64
	var correct int
	for lo := 0; lo < len(x); lo += batchSize {
		hi := lo + batchSize
		if hi > len(x) {
			hi = len(x)
		}
		seq, err := m.toSequence(x[lo:hi], y[lo:hi])
		if err != nil {
			return 0, 0, err
		}
		out := m.forward(seq, false)
		loss, c, _ := crossEntropy(out[0], y[lo:hi])
		total += loss * float64(hi-lo)
		correct += c
	}
	n := float64(len(x))
	return total / n, float64(correct) / n, nil
}

// Predict returns class probabilities for every sample.
func (m *Model) Predict(x [][][]float64) ([][]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	const batchSize = 256
	out := make([][]float64, 0, len(x))
	for lo := 0; lo < len(x); lo += batchSize {
		hi := lo + batchSize
		if hi > len(x) {
			hi = len(x)
		}
		seq, err := m.toSequence(x[lo:hi], nil)
		if err != nil {
			return nil, err
		}
		logits := m.forward(seq, false)[0]
		_, classes := logits.Dims()
		ld := raw(logits)
		for r := 0; r < hi-lo; r++ {
			p := make([]float64, classes)
			softmaxRow(p, ld[r*classes:(r+1)*classes])
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Model) forward(seq []*mat.Dense, training bool) []*mat.Dense {
	for _, l := range m.layers {
		seq = l.forward(seq, training)
	}
	return seq
}

// lossAndGrad fills the gradients of every trainable param for one batch.
func (m *Model) lossAndGrad(seq []*mat.Dense, y []int) (float64, int) {
	for _, p := range m.allParams() {
		if p.g != nil {
			p.g.Zero()
		}
	}
	out := m.forward(seq, true)
	loss, correct, grad := crossEntropy(out[0], y)

	g := []*mat.Dense{grad}
	for i := len(m.layers) - 1; i >= 0; i-- {
		g = m.layers[i].backward(g)
	}
	return loss, correct
}

func (m *Model) allParams() []*param {
	var ps []*param
	for _, l := range m.layers {
		ps = append(ps, l.params()...)
	}
	return ps
}

// toSequence converts samples×steps×features into per-step batch matrices.
func (m *Model) toSequence(x [][][]float64, y []int) ([]*mat.Dense, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("empty batch: %w", models.ErrNotEnoughData)
	}
	if y != nil && len(y) != len(x) {
		return nil, fmt.Errorf("%d samples, %d labels: %w", len(x), len(y), models.ErrShapeMismatch)
	}
	for _, label := range y {
		if label < 0 || label >= m.cfg.Classes {
			return nil, fmt.Errorf("label %d out of range [0,%d)", label, m.cfg.Classes)
		}
	}

	batch, steps, feats := len(x), len(x[0]), m.cfg.Features
	if steps == 0 {
		return nil, fmt.Errorf("zero-length sequence: %w", models.ErrShapeMismatch)
	}
	seq := make([]*mat.Dense, steps)
	for t := range seq {
		seq[t] = mat.NewDense(batch, feats, nil)
	}
	for b, sample := range x {
		if len(sample) != steps {
			return nil, fmt.Errorf("sample %d has %d steps, want %d: %w", b, len(sample), steps, models.ErrShapeMismatch)
		}
		for t, row := range sample {
			if len(row) != feats {
				return nil, fmt.Errorf("sample %d step %d has %d features, want %d: %w", b, t, len(row), feats, models.ErrShapeMismatch)
			}
			copy(raw(seq[t])[b*feats:(b+1)*feats], row)
		}
	}
	return seq, nil
}
