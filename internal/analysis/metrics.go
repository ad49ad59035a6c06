package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors the service updates.
type Metrics struct {
	ReportsTotal        *prometheus.CounterVec
	BatchProjectsTotal  *prometheus.CounterVec
	BatchDuration       prometheus.Histogram
	ExportFailuresTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which tests use to avoid global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskscope_reports_total",
			Help: "Reports produced, by verdict.",
		}, []string{"verdict"}),
		BatchProjectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskscope_batch_projects_total",
			Help: "Projects submitted in batches, by outcome (scored, failed, skipped).",
		}, []string{"outcome"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskscope_batch_duration_seconds",
			Help:    "Wall time of batch runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ExportFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskscope_export_failures_total",
			Help: "Failed report shares, by target.",
		}, []string{"target"}),
	}
	if reg != nil {
		reg.MustRegister(m.ReportsTotal, m.BatchProjectsTotal, m.BatchDuration, m.ExportFailuresTotal)
	}
	return m
}

func (m *Metrics) observeBatch(scored, failed, skipped int, elapsed time.Duration) {
	m.BatchProjectsTotal.WithLabelValues("scored").Add(float64(scored))
	m.BatchProjectsTotal.WithLabelValues("failed").Add(float64(failed))
	m.BatchProjectsTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.BatchDuration.Observe(elapsed.Seconds())
}
