// ABOUTME: Prometheus metrics for lint requests, durations, emitted diagnostics, and cache hits.
// ABOUTME: Metrics register on a per-server registry so tests and multiple servers do not collide.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's collectors.
type Metrics struct {
	LintRequests *prometheus.CounterVec
	LintDuration prometheus.Histogram
	Diagnostics  *prometheus.CounterVec
	CacheHits    prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		LintRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowlint_lint_requests_total",
				Help: "Total number of lint requests by outcome",
			},
			[]string{"status"},
		),
		LintDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flowlint_lint_duration_seconds",
				Help:    "Lint request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
			},
		),
		Diagnostics: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowlint_diagnostics_total",
				Help: "Total number of diagnostics returned by severity",
			},
			[]string{"severity"},
		),
		CacheHits: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "flowlint_cache_hits_total",
				Help: "Total number of lint requests served from the result cache",
			},
		),
	}
}
