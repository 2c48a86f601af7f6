// Package observability wires the core's Prometheus metrics: per-backend
// and per-lookup-kind counters (§4.10's "statistics" requirement) plus HTTP
// request metrics for the API surface.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the core registers. A nil
// *Metrics is safe to call methods on — every Record/Inc method no-ops —
// so observability can be wired optionally without guard clauses at call
// sites.
type Metrics struct {
	registry *prometheus.Registry

	backendRequests *prometheus.CounterVec
	backendSuccess  *prometheus.CounterVec
	backendFailure  *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec

	lookupRequests *prometheus.CounterVec
	lookupHits     *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics constructs a fresh registry with the core's collectors
// registered.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.backendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "backend", Name: "requests_total",
		Help: "Total generate() calls attempted per backend.",
	}, []string{"backend"})
	m.backendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "backend", Name: "successes_total",
		Help: "Total generate() calls that returned a usable response.",
	}, []string{"backend"})
	m.backendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "backend", Name: "failures_total",
		Help: "Total generate() calls that failed or returned ok=false.",
	}, []string{"backend"})
	m.backendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "backend", Name: "latency_seconds",
		Help:    "generate() call latency per backend.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"backend"})

	m.lookupRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "lookup", Name: "requests_total",
		Help: "Total is_relevant() checks per knowledge provider kind.",
	}, []string{"kind"})
	m.lookupHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "lookup", Name: "hits_total",
		Help: "Total lookup_for_prompt() calls that matched per provider kind.",
	}, []string{"kind"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total HTTP requests handled.",
	}, []string{"method", "path", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.registry.MustRegister(
		m.backendRequests, m.backendSuccess, m.backendFailure, m.backendLatency,
		m.lookupRequests, m.lookupHits,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// RecordBackendAttempt records one generate() call's outcome and latency.
func (m *Metrics) RecordBackendAttempt(backend string, ok bool, latency time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(backend).Inc()
	if ok {
		m.backendSuccess.WithLabelValues(backend).Inc()
	} else {
		m.backendFailure.WithLabelValues(backend).Inc()
	}
	m.backendLatency.WithLabelValues(backend).Observe(latency.Seconds())
}

// RecordLookup records a knowledge-provider is_relevant/lookup attempt.
func (m *Metrics) RecordLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	m.lookupRequests.WithLabelValues(kind).Inc()
	if hit {
		m.lookupHits.WithLabelValues(kind).Inc()
	}
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func statusLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// Handler exposes the registry over the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
