// Package metrics exposes Prometheus instrumentation for the answering service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

const namespace = "recall"

// Mutation status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder records measurements into its own registry.
type Recorder struct {
	registry *prometheus.Registry

	retrievalDuration  *prometheus.HistogramVec
	generationDuration prometheus.Histogram
	answersTotal       *prometheus.CounterVec
	mutationsTotal     *prometheus.CounterVec
	chunks             *prometheus.GaugeVec
}

// New creates a Recorder. Go runtime and process collectors are registered
// alongside the service metrics.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		retrievalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retrieval_duration_seconds",
				Help:      "Duration of embedding, search and rerank for one query",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"index"},
		),

		generationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of one generator call",
				Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),

		answersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Total number of answers by outcome",
			},
			[]string{"outcome"},
		),

		mutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_mutations_total",
				Help:      "Total number of index mutations",
			},
			[]string{"index", "op", "status"},
		),

		chunks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_chunks",
				Help:      "Number of chunks held by an index",
			},
			[]string{"index"},
		),
	}
}

// ObserveRetrieval records the duration of one retrieval.
func (r *Recorder) ObserveRetrieval(index string, d time.Duration) {
	r.retrievalDuration.WithLabelValues(index).Observe(d.Seconds())
}

// ObserveGeneration records the duration of one generator call.
func (r *Recorder) ObserveGeneration(d time.Duration) {
	r.generationDuration.Observe(d.Seconds())
}

// CountAnswer counts an answer by outcome.
func (r *Recorder) CountAnswer(outcome string) {
	r.answersTotal.WithLabelValues(outcome).Inc()
}

// CountMutation counts an index mutation by status.
func (r *Recorder) CountMutation(index, op string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	r.mutationsTotal.WithLabelValues(index, op, status).Inc()
}

// SetChunks reports the number of chunks held by an index.
func (r *Recorder) SetChunks(index string, n int) {
	r.chunks.WithLabelValues(index).Set(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
