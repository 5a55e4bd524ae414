// Package metrics provides Prometheus instrumentation for the analyst.
//
// Metrics exposed:
//   - skillhalflife_analysis_seconds: histogram of computation time by operation
//   - skillhalflife_source_fetch_seconds: histogram of job-market source latency
//   - skillhalflife_cache_requests_total: counter of report cache lookups by result
//   - skillhalflife_catalog_reloads_total: counter of pivot catalog reloads by result
//   - skillhalflife_catalog_size: gauge of profiles in the active pivot catalog
//   - skillhalflife_errors_total: counter of errors by component and reason
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the analyst.
type Metrics struct {
	AnalysisSeconds    *prometheus.HistogramVec
	SourceFetchSeconds prometheus.Histogram
	CacheRequests      *prometheus.CounterVec
	CatalogReloads     *prometheus.CounterVec
	CatalogSize        prometheus.Gauge
	ErrorsTotal        *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer, source string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AnalysisSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skillhalflife_analysis_seconds",
			Help:    "Time spent computing analytics",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"operation"}),

		SourceFetchSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "skillhalflife_source_fetch_seconds",
			Help: "Time spent reading job market rows",
			ConstLabels: prometheus.Labels{
				"source": source,
			},
			Buckets: prometheus.DefBuckets,
		}),

		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skillhalflife_cache_requests_total",
			Help: "Report cache lookups by result (hit, miss)",
		}, []string{"result"}),

		CatalogReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skillhalflife_catalog_reloads_total",
			Help: "Pivot catalog reloads by result",
		}, []string{"result"}),

		CatalogSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skillhalflife_catalog_size",
			Help: "Profiles in the active pivot catalog",
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skillhalflife_errors_total",
			Help: "Total number of errors by component and reason",
		}, []string{"component", "reason"}),
	}
}

// RecordAnalysis records how long an operation took.
func (m *Metrics) RecordAnalysis(operation string, seconds float64) {
	m.AnalysisSeconds.WithLabelValues(operation).Observe(seconds)
}

// RecordFetch records the time spent reading rows from the source.
func (m *Metrics) RecordFetch(seconds float64) {
	m.SourceFetchSeconds.Observe(seconds)
}

func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.CacheRequests.WithLabelValues("hit").Inc()
		return
	}
	m.CacheRequests.WithLabelValues("miss").Inc()
}

// RecordCatalogReload counts a reload attempt and, on success, the new size.
func (m *Metrics) RecordCatalogReload(size int, err error) {
	if err != nil {
		m.CatalogReloads.WithLabelValues("error").Inc()
		return
	}
	m.CatalogReloads.WithLabelValues("ok").Inc()
	m.CatalogSize.Set(float64(size))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
