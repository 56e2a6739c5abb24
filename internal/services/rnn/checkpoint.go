package rnn

import (
	"encoding/json"
	"fmt"
	"io"

	"CryptoRNN/internal/domain/models"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"
)

const checkpointVersion = 1

type checkpoint struct {
	Version    int          `json:"version"`
	Config     Config       `json:"config"`
	Iterations int64        `json:"iterations"`
	Params     []paramState `json:"params"`
}

type paramState struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	W    []float64 `json:"w"`
	M    []float64 `json:"m,omitempty"`
	V    []float64 `json:"v,omitempty"`
}

// Save writes the model as zstd-compressed JSON, including optimizer state.
func (m *Model) Save(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ck := checkpoint{
		Version:    checkpointVersion,
		Config:     m.cfg,
		Iterations: m.opt.iterations,
	}
	for _, p := range m.allParams() {
		r, c := p.w.Dims()
		ps := paramState{Name: p.name, Rows: r, Cols: c, W: raw(p.w)}
		if p.m != nil {
			ps.M, ps.V = raw(p.m), raw(p.v)
		}
		ck.Params = append(ck.Params, ps)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(&ck); err != nil {
		zw.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush checkpoint: %w", err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(r io.Reader) (*Model, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	var ck checkpoint
	if err := json.NewDecoder(zr).Decode(&ck); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if ck.Version != checkpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", ck.Version)
	}

	m, err := New(ck.Config)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*param)
	for _, p := range m.allParams() {
		byName[p.name] = p
	}
	for _, ps := range ck.Params {
		p, ok := byName[ps.Name]
		if !ok {
			return nil, fmt.Errorf("unknown param %s", ps.Name)
		}
		r, c := p.w.Dims()
		if ps.Rows != r || ps.Cols != c || len(ps.W) != r*c {
			return nil, fmt.Errorf("param %s is %dx%d, want %dx%d: %w", ps.Name, ps.Rows, ps.Cols, r, c, models.ErrShapeMismatch)
		}
		copy(raw(p.w), ps.W)
		if len(ps.M) == r*c && len(ps.V) == r*c && p.trainable {
			p.m = mat.NewDense(r, c, append([]float64(nil), ps.M...))
			p.v = mat.NewDense(r, c, append([]float64(nil), ps.V...))
		}
		delete(byName, ps.Name)
	}
	if len(byName) > 0 {
		return nil, fmt.Errorf("checkpoint misses %d params", len(byName))
	}
	m.opt.iterations = ck.Iterations
	return m, nil
}
