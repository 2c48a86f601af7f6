package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ember-run/ember/internal/observability"
)

// shutdowner is satisfied by *sdktrace.TracerProvider; the noop provider
// returned when tracing is disabled does not implement it.
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// initTracing installs the global tracer provider from environment
// variables (tracing is an optional, opt-in ambient concern with no
// dedicated config section) and returns a shutdown func safe to defer
// unconditionally.
func initTracing(ctx context.Context) func() {
	cfg := observability.TracerConfig{
		Enabled:      os.Getenv("EMBER_TRACING_ENABLED") == "true",
		EndpointURL:  os.Getenv("EMBER_OTLP_ENDPOINT"),
		SamplingRate: 1.0,
		ServiceName:  "ember",
	}
	if cfg.EndpointURL == "" {
		cfg.EndpointURL = "localhost:4317"
	}

	tp, err := observability.InitGlobalTracer(ctx, cfg)
	if err != nil {
		slog.Warn("tracing disabled: failed to init tracer", slog.String("error", err.Error()))
		return func() {}
	}

	return func() {
		if s, ok := tp.(shutdowner); ok {
			_ = s.Shutdown(context.Background())
		}
	}
}
