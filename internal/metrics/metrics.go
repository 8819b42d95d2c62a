// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Page statuses.
const (
	PageStatusOK         = "ok"
	PageStatusParseError = "parse_error"
)

// Cycle results.
const (
	CycleResultOK    = "ok"
	CycleResultError = "error"
)

var (
	fetchAttemptsTotal         *prometheus.CounterVec
	pagesTotal                 *prometheus.CounterVec
	recordsStoredTotal         prometheus.Counter
	cyclesTotal                *prometheus.CounterVec
	cycleDurationSeconds       prometheus.Histogram
	lastCycleTimestamp         prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_attempts_total",
				Help: "Total number of fetch attempts through the proxy, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_total",
				Help: "Total number of listing pages processed, labeled by status.",
			},
			[]string{"status"},
		)

		recordsStoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_records_stored_total",
				Help: "Total number of pastes persisted.",
			},
		)

		cyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_cycles_total",
				Help: "Total number of crawl cycles, labeled by result.",
			},
			[]string{"result"},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvester_cycle_duration_seconds",
				Help:    "Histogram of crawl cycle durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		lastCycleTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_last_cycle_timestamp_seconds",
				Help: "Unix time at which the last crawl cycle finished.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchAttempt counts one fetch attempt.
func ObserveFetchAttempt(outcome string) {
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObservePage counts one processed listing page.
func ObservePage(status string) {
	pagesTotal.WithLabelValues(status).Inc()
}

// ObserveRecordsStored adds n persisted pastes.
func ObserveRecordsStored(n int) {
	if n > 0 {
		recordsStoredTotal.Add(float64(n))
	}
}

// ObserveCycle records a finished crawl cycle.
func ObserveCycle(result string, duration time.Duration) {
	cyclesTotal.WithLabelValues(result).Inc()
	cycleDurationSeconds.Observe(duration.Seconds())
	lastCycleTimestamp.SetToCurrentTime()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
