package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	sequences   *prometheus.CounterVec
	epochs      prometheus.Counter
	batchLoss   prometheus.Histogram
	epochMetric *prometheus.GaugeVec
	checkpoints prometheus.Counter
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		sequences: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptornn_sequences_prepared_total",
				Help: "Balanced sequences produced per split and label",
			},
			[]string{"split", "label"},
		),
		epochs: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptornn_epochs_total",
			Help: "Completed training epochs",
		}),
		batchLoss: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptornn_batch_loss",
			Help:    "Cross-entropy loss per training batch",
			Buckets: []float64{0.1, 0.3, 0.5, 0.6, 0.65, 0.69, 0.7, 0.75, 0.8, 1, 2},
		}),
		epochMetric: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptornn_epoch_metric",
				Help: "Latest epoch loss/accuracy for train and validation",
			},
			[]string{"metric"},
		),
		checkpoints: f.NewCounter(prometheus.CounterOpts{
			Name: "cryptornn_checkpoints_saved_total",
			Help: "Checkpoints written after a validation accuracy improvement",
		}),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptornn_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptornn_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"stage"},
		),
	}
}

// RecordSequences records balanced sequences per split and label.
func (r *Recorder) RecordSequences(split string, label int, n int) {
	r.sequences.WithLabelValues(split, strconv.Itoa(label)).Add(float64(n))
}

// RecordBatchLoss observes one training batch loss.
func (r *Recorder) RecordBatchLoss(loss float64) {
	r.batchLoss.Observe(loss)
}

// RecordEpoch records end-of-epoch metrics.
func (r *Recorder) RecordEpoch(loss, acc, valLoss, valAcc float64) {
	r.epochs.Inc()
	r.epochMetric.WithLabelValues("loss").Set(loss)
	r.epochMetric.WithLabelValues("accuracy").Set(acc)
	r.epochMetric.WithLabelValues("val_loss").Set(valLoss)
	r.epochMetric.WithLabelValues("val_accuracy").Set(valAcc)
}

// RecordCheckpoint counts a saved checkpoint.
func (r *Recorder) RecordCheckpoint() {
	r.checkpoints.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records stage latency in seconds.
func (r *Recorder) RecordLatency(stage string, seconds float64) {
	r.latency.WithLabelValues(stage).Observe(seconds)
}
