package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	collectorTotal *prometheus.CounterVec
	verdictsTotal  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		collectorTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartverdict_collector_total",
				Help: "Signal collector outcomes (ok, absent, timeout, error)",
			},
			[]string{"collector", "outcome"},
		),
		verdictsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartverdict_verdicts_total",
				Help: "Verdicts produced by action",
			},
			[]string{"action"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartverdict_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartverdict_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCollector records the outcome of one signal collector invocation.
func (r *Recorder) RecordCollector(collector, outcome string) {
	r.collectorTotal.WithLabelValues(collector, outcome).Inc()
}

// RecordVerdict records a produced verdict.
func (r *Recorder) RecordVerdict(action string) {
	r.verdictsTotal.WithLabelValues(action).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCollector(string, string) {}
func (Nop) RecordVerdict(string)           {}
func (Nop) RecordError(string)             {}
func (Nop) RecordLatency(string, float64)  {}
