// Package metrics holds the prometheus collectors for ingestion runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	RowsWritten   *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Runs          *prometheus.CounterVec
}

// New registers the ingestion collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundsync",
			Name:      "rows_written_total",
			Help:      "Rows committed to fund tables.",
		}, []string{"table", "mode"}),
		FetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundsync",
			Name:      "fetch_failures_total",
			Help:      "Per-ISIN upstream fetch or normalize failures.",
		}, []string{"dataset"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fundsync",
			Name:      "stage_duration_seconds",
			Help:      "Duration of ingestion stages.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage", "outcome"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundsync",
			Name:      "runs_total",
			Help:      "Completed ingestion runs by outcome.",
		}, []string{"outcome"}),
	}
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
