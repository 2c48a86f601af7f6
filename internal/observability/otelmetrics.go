package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelMetrics mirrors a subset of Metrics through the OpenTelemetry metrics
// API instead of the direct client_golang API, for deployments that want a
// single OTLP/Prometheus-bridge pipeline for both traces and metrics.
// A nil *OTelMetrics no-ops.
type OTelMetrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	backendCalls   metric.Int64Counter
	backendLatency metric.Float64Histogram
}

// NewOTelMetrics builds an OTel MeterProvider backed by the Prometheus
// exporter bridge and registers the core's counters/histograms. The
// exporter is registered into its own registry rather than the global
// client_golang one, so it can coexist with the direct Metrics type's
// collectors on a separate scrape path.
func NewOTelMetrics() (*OTelMetrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("observability: create otel prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("ember/orchestrator")

	backendCalls, err := meter.Int64Counter("ember_backend_calls_total",
		metric.WithDescription("Total generate() calls attempted per backend (OTel path)."))
	if err != nil {
		return nil, fmt.Errorf("observability: create backend calls counter: %w", err)
	}
	backendLatency, err := meter.Float64Histogram("ember_backend_latency_seconds",
		metric.WithDescription("generate() call latency per backend (OTel path)."))
	if err != nil {
		return nil, fmt.Errorf("observability: create backend latency histogram: %w", err)
	}

	return &OTelMetrics{
		registry:       registry,
		provider:       provider,
		backendCalls:   backendCalls,
		backendLatency: backendLatency,
	}, nil
}

// RecordBackendCall records one generate() attempt's outcome via the OTel
// metrics API.
func (m *OTelMetrics) RecordBackendCall(ctx context.Context, backend string, ok bool, latencySeconds float64) {
	if m == nil {
		return
	}
	m.backendCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.Bool("ok", ok),
	))
	m.backendLatency.Record(ctx, latencySeconds, metric.WithAttributes(attribute.String("backend", backend)))
}

// Handler exposes the bridged Prometheus exposition endpoint for the OTel
// meter provider's collected instruments.
func (m *OTelMetrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (m *OTelMetrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
