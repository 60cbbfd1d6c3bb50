package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a scrape run.
type Metrics struct {
	Registry              *prometheus.Registry
	APICallsTotal         *prometheus.CounterVec
	PageFetchesTotal      *prometheus.CounterVec
	FetchDuration         prometheus.Histogram
	ErrorsTotal           *prometheus.CounterVec
	ExtractionMissesTotal *prometheus.CounterVec
	RowsWrittenTotal      *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	apiCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfscrape_api_calls_total",
			Help: "API method calls by method and outcome.",
		},
		[]string{"method", "outcome"},
	)
	pageFetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfscrape_page_fetches_total",
			Help: "Page fetches by page kind and outcome.",
		},
		[]string{"page", "outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cfscrape_fetch_duration_seconds",
			Help:    "Latency of API calls and page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfscrape_errors_total",
			Help: "Failed API calls and page fetches by type.",
		},
		[]string{"error_type"},
	)
	misses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfscrape_extraction_misses_total",
			Help: "Fetched pages where a field fell back to its default.",
		},
		[]string{"field"},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfscrape_rows_written_total",
			Help: "Rows written by record kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(apiCalls, pageFetches, fetchDuration, errorsTotal, misses, rows)

	return &Metrics{
		Registry:              registry,
		APICallsTotal:         apiCalls,
		PageFetchesTotal:      pageFetches,
		FetchDuration:         fetchDuration,
		ErrorsTotal:           errorsTotal,
		ExtractionMissesTotal: misses,
		RowsWrittenTotal:      rows,
	}
}

// ObserveAPICall records one API call.
func (m *Metrics) ObserveAPICall(method string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.IncError(errorTypeLabel(err))
	}
	m.APICallsTotal.WithLabelValues(method, outcome).Inc()
	m.ObserveDuration(d)
}

// IncPageFetch counts a page fetch outcome: ok, cache_hit or error.
func (m *Metrics) IncPageFetch(page PageKind, outcome string) {
	if m == nil {
		return
	}
	m.PageFetchesTotal.WithLabelValues(string(page), outcome).Inc()
}

// ObserveDuration records a request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncMiss counts a field that was not found on a fetched page.
func (m *Metrics) IncMiss(field string) {
	if m == nil {
		return
	}
	m.ExtractionMissesTotal.WithLabelValues(field).Inc()
}

// AddRows adds n written rows of kind.
func (m *Metrics) AddRows(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsWrittenTotal.WithLabelValues(kind).Add(float64(n))
}
