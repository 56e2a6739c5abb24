package service

import "io"

// Classifier is a trainable sequence classifier.
type Classifier interface {
	// TrainBatch runs one optimizer step and returns the batch loss and accuracy.
	TrainBatch(x [][][]float64, y []int) (loss, acc float64, err error)
	// Evaluate runs inference mode over x in batches.
	Evaluate(x [][][]float64, y []int, batchSize int) (loss, acc float64, err error)
	// Predict returns class probabilities per sample.
	Predict(x [][][]float64) ([][]float64, error)
	LearningRate() float64
	Save(w io.Writer) error
}

// CheckpointStore persists classifiers under a name relative to its root.
type CheckpointStore interface {
	Save(name string, c Classifier) (path string, err error)
}
