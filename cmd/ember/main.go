// Command ember starts the privacy-first assistant's HTTP/WebSocket API
// server, wiring configuration, model backends, privacy controller,
// knowledge providers, CORTEX memory, and the Governance Engine together.
// CLI plumbing/setup wizards are out of scope (SPEC_FULL.md §2); this is a
// single flag for the config path plus environment-driven overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ember-run/ember/internal/api"
	"github.com/ember-run/ember/internal/auth"
	"github.com/ember-run/ember/internal/config"
	"github.com/ember-run/ember/internal/cortex"
	"github.com/ember-run/ember/internal/governance"
	"github.com/ember-run/ember/internal/memoryintegration"
	"github.com/ember-run/ember/internal/model"
	"github.com/ember-run/ember/internal/observability"
	"github.com/ember-run/ember/internal/orchestrator"
	"github.com/ember-run/ember/internal/privacy"
	"github.com/ember-run/ember/internal/ratelimit"
	"github.com/ember-run/ember/internal/scheduler"
	"github.com/ember-run/ember/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ember: config error:", err)
		os.Exit(1)
	}

	initLogger(cfg.Logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracerShutdown := initTracing(ctx)
	defer tracerShutdown()

	s, err := store.Open(dbDriverFor(cfg.Memory), cfg.Memory.DSN, dialectFor(cfg.Memory))
	if err != nil {
		slog.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer s.Close()

	mem := memoryintegration.New(cortex.New(store.NewCortexAdapter(s)), s)

	sched := scheduler.New(mem)
	if err := sched.Start("@every 1m", "@every 1h"); err != nil {
		slog.Error("failed to start scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sched.Stop()

	backends := buildModelRegistry(ctx, cfg.Models)

	pc := privacy.New(
		privacy.WithAutoConfirm(cfg.Privacy.AutoConfirm),
	)

	limiter := ratelimit.New(toRatelimitConfig(cfg.RateLimit))

	router := buildKnowledgeRouter(cfg.Knowledge, limiter)

	metrics := observability.NewMetrics("ember")
	otelMetrics, err := observability.NewOTelMetrics()
	if err != nil {
		slog.Warn("otel metrics bridge unavailable, /metrics/otel disabled", slog.String("error", err.Error()))
	}
	if otelMetrics != nil {
		defer otelMetrics.Shutdown(context.Background())
	}

	orch := orchestrator.New(backends, pc, router, metrics, otelMetrics)

	engine := governance.NewEngine(orch, mem, s, governance.NewStoreProfileStore(s))

	var validator *auth.JWTValidator
	if cfg.Governance.Auth.Enabled {
		validator, err = auth.NewJWTValidator(cfg.Governance.Auth.JWKSURL, cfg.Governance.Auth.Issuer, cfg.Governance.Auth.Audience)
		if err != nil {
			slog.Error("failed to build jwt validator", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	srv := api.New(engine, pc, s, metrics, validator, otelMetrics)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("ember listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

func dbDriverFor(m config.MemoryConfig) string {
	switch m.DBDriver {
	case "postgres":
		return "pgx"
	case "mysql":
		return "mysql"
	default:
		return "sqlite3"
	}
}

func dialectFor(m config.MemoryConfig) store.Dialect {
	switch m.DBDriver {
	case "postgres":
		return store.DialectPostgres
	case "mysql":
		return store.DialectMySQL
	default:
		return store.DialectSQLite
	}
}

func toRatelimitConfig(c config.RateLimitConfig) ratelimit.Config {
	out := ratelimit.Config{
		Enabled:     c.Enabled,
		Default:     ratelimit.ProviderLimit(c.Default),
		PerProvider: make(map[string]ratelimit.ProviderLimit, len(c.PerProvider)),
	}
	for name, l := range c.PerProvider {
		out.PerProvider[name] = ratelimit.ProviderLimit(l)
	}
	return out
}

func buildModelRegistry(ctx context.Context, models config.ModelsConfig) *model.Registry {
	registry := model.NewRegistry()
	for name, p := range models {
		var backend model.Client
		switch p.Kind {
		case "claude":
			backend = model.NewAnthropicBackend(p.APIKey, p.Model, 2000)
		case "gemini":
			backend = model.NewGeminiBackend(ctx, p.APIKey, p.Model)
		case "openai":
			backend = model.NewOpenAIBackend(p.APIKey, p.Model)
		case "groq":
			backend = model.NewGroqBackend(p.APIKey, p.Model)
		default:
			backend = model.NewLocalBackend(p.BaseURL, p.Model)
		}
		if err := registry.RegisterBackend(name, backend); err != nil {
			slog.Warn("failed to register model backend", slog.String("name", name), slog.String("error", err.Error()))
		}
	}
	return registry
}
