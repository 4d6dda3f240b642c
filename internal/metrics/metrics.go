// Package metrics exposes Prometheus collectors for the scraper and its API.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal          *prometheus.CounterVec
	bytesFetchedTotal          *prometheus.CounterVec
	rateLimitDelaySeconds      *prometheus.HistogramVec
	documentsIngestedTotal     *prometheus.CounterVec
	validationWarningsTotal    *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ktweb_pages_fetched_total",
				Help: "Total number of ktweb pages requested, labeled by page kind and outcome.",
			},
			[]string{"kind", "status"},
		)

		bytesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ktweb_bytes_fetched_total",
				Help: "Total number of bytes downloaded, labeled by host.",
			},
			[]string{"host"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ktweb_rate_limit_delay_seconds",
				Help:    "Histogram of time spent waiting for the politeness interval.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
		)

		documentsIngestedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ktweb_documents_ingested_total",
				Help: "Meeting documents processed by ingest, labeled by outcome.",
			},
			[]string{"status"},
		)

		validationWarningsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ktweb_validation_warnings_total",
				Help: "Validation warnings raised on extracted meeting documents, labeled by field.",
			},
			[]string{"field"},
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

// SanitizeHost extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage records one page request outcome.
func ObservePage(rawURL, kind, status string, size int) {
	Init()
	pagesFetchedTotal.WithLabelValues(kind, status).Inc()
	if size > 0 {
		bytesFetchedTotal.WithLabelValues(SanitizeHost(rawURL)).Add(float64(size))
	}
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(rawURL string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(SanitizeHost(rawURL)).Observe(duration.Seconds())
}

// ObserveDocument records an ingest outcome such as created, skipped or failed.
func ObserveDocument(status string) {
	Init()
	documentsIngestedTotal.WithLabelValues(status).Inc()
}

// ObserveValidationWarning counts one warning against field.
func ObserveValidationWarning(field string) {
	Init()
	validationWarningsTotal.WithLabelValues(field).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
