// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by route pattern and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	// CacheLookups counts document reads served from memory ("hit") or disk ("miss").
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staysync_docstore_cache_lookups_total",
			Help: "Document store cache lookups by result",
		},
		[]string{"collection", "result"},
	)

	DocumentWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staysync_docstore_writes_total",
			Help: "Whole-document writes",
		},
		[]string{"collection"},
	)

	// BackupFailures counts pre-write backups that could not be taken.
	BackupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staysync_docstore_backup_failures_total",
			Help: "Pre-write backup copies that failed",
		},
		[]string{"collection"},
	)

	// InventoryOperations counts successful inventory mutations.
	InventoryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staysync_inventory_operations_total",
			Help: "Inventory mutations by operation",
		},
		[]string{"operation"},
	)

	// EnrichmentMisses counts items dropped from enriched reads because their template is gone.
	EnrichmentMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staysync_inventory_enrichment_misses_total",
			Help: "Inventory items dropped from enriched reads due to a missing catalog item",
		},
	)
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency labelled by the matched route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
