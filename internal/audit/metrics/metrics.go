package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the audit pipeline.
type Metrics struct {
	RecordsWritten *prometheus.CounterVec
	WriteFailures  prometheus.Counter
	OutboxLag      prometheus.Gauge
}

// New creates and registers the audit metrics.
func New() *Metrics {
	return &Metrics{
		RecordsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "glint_audit_records_written_total",
			Help: "Total number of audit records appended, by category",
		}, []string{"category"}),
		WriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "glint_audit_write_failures_total",
			Help: "Total number of failed audit appends (each one aborted its business transaction)",
		}),
		OutboxLag: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "glint_audit_outbox_pending",
			Help: "Audit outbox entries not yet published to the compliance stream",
		}),
	}
}

// IncrementRecordsWritten increments the written counter for a category.
func (m *Metrics) IncrementRecordsWritten(category string) {
	m.RecordsWritten.WithLabelValues(category).Inc()
}

// IncrementWriteFailures increments the fail-closed abort counter.
func (m *Metrics) IncrementWriteFailures() {
	m.WriteFailures.Inc()
}

// SetOutboxPending records the current outbox backlog size.
func (m *Metrics) SetOutboxPending(n int) {
	m.OutboxLag.Set(float64(n))
}
