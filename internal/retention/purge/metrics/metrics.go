package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for retention purge runs.
type Metrics struct {
	RecordsPurged   *prometheus.CounterVec
	RecordsHeld     *prometheus.CounterVec
	RecordsEligible *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	RunFailures     prometheus.Counter
}

// New creates and registers the purge metrics.
func New() *Metrics {
	return &Metrics{
		RecordsPurged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "glint_audit_records_purged_total",
			Help: "Audit records deleted by retention runs, by category",
		}, []string{"category"}),
		RecordsHeld: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "glint_audit_records_on_legal_hold_total",
			Help: "Purge candidates excluded by an active legal hold, by category",
		}, []string{"category"}),
		RecordsEligible: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "glint_audit_records_eligible_total",
			Help: "Records found past their retention window, by category",
		}, []string{"category"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "glint_purge_run_duration_seconds",
			Help:    "Wall-clock duration of purge runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		RunFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "glint_purge_run_failures_total",
			Help: "Purge runs aborted after exhausting batch retries",
		}),
	}
}

// AddPurged records deleted rows for a category.
func (m *Metrics) AddPurged(category string, n int64) {
	m.RecordsPurged.WithLabelValues(category).Add(float64(n))
}

// AddHeld records hold-excluded rows for a category.
func (m *Metrics) AddHeld(category string, n int64) {
	m.RecordsHeld.WithLabelValues(category).Add(float64(n))
}

// AddEligible records retention-expired rows for a category.
func (m *Metrics) AddEligible(category string, n int64) {
	m.RecordsEligible.WithLabelValues(category).Add(float64(n))
}

// ObserveRunDuration records one run's duration in seconds.
func (m *Metrics) ObserveRunDuration(seconds float64) {
	m.RunDuration.Observe(seconds)
}

// IncrementRunFailures counts one aborted run.
func (m *Metrics) IncrementRunFailures() {
	m.RunFailures.Inc()
}
