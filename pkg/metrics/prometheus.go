package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchedTotal      prometheus.Counter
	rejectedTotal     *prometheus.CounterVec
	coercionFailures  prometheus.Counter
	rowsLoaded        *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coinsink_records_fetched_total",
				Help: "Total number of raw records fetched from the source API",
			},
		),
		rejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsink_records_rejected_total",
				Help: "Total number of raw records rejected before normalization",
			},
			[]string{"reason"},
		),
		coercionFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coinsink_coercion_failures_total",
				Help: "Total number of field values nulled by failed type coercion",
			},
		),
		rowsLoaded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsink_rows_loaded_total",
				Help: "Total number of canonical rows applied to the store",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsink_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinsink_operation_duration_seconds",
				Help:    "Duration of pipeline operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetched counts raw records returned by one fetch cycle.
func (r *Recorder) RecordFetched(records int) {
	r.fetchedTotal.Add(float64(records))
}

// RecordRejected counts a record rejected by the validator or loader.
func (r *Recorder) RecordRejected(reason string) {
	r.rejectedTotal.WithLabelValues(reason).Inc()
}

// RecordCoercionFailures counts fields nulled during normalization.
func (r *Recorder) RecordCoercionFailures(n int) {
	if n > 0 {
		r.coercionFailures.Add(float64(n))
	}
}

// RecordRowsLoaded counts rows inserted and updated by one load.
func (r *Recorder) RecordRowsLoaded(inserted, updated int) {
	if inserted > 0 {
		r.rowsLoaded.WithLabelValues("inserted").Add(float64(inserted))
	}
	if updated > 0 {
		r.rowsLoaded.WithLabelValues("updated").Add(float64(updated))
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.operationDuration.WithLabelValues(op).Observe(seconds)
}
