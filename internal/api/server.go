// Package api exposes the Governance Engine over HTTP and WebSocket
// (§4.12): POST /chat, POST /clear, the /api/* diagnostic routes, and a
// streaming /ws/chat over a chi router.
package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/ember-run/ember/internal/auth"
	"github.com/ember-run/ember/internal/governance"
	"github.com/ember-run/ember/internal/observability"
	"github.com/ember-run/ember/internal/privacy"
	"github.com/ember-run/ember/internal/store"
)

// Server wires the Governance Engine, privacy controller, and store
// behind an HTTP router.
type Server struct {
	router   chi.Router
	engine   *governance.Engine
	privacy  *privacy.Controller
	store    *store.Store
	metrics  *observability.Metrics
	otel     *observability.OTelMetrics
	upgrader websocket.Upgrader
}

// New builds the router and registers every route. authValidator may be
// nil, in which case the JWT middleware is a no-op (auth off by default).
// otelMetrics may be nil; when set it exposes a second, OTel-API-backed
// scrape endpoint at /metrics/otel alongside the direct /metrics one.
func New(engine *governance.Engine, pc *privacy.Controller, s *store.Store, m *observability.Metrics, authValidator *auth.JWTValidator, otelMetrics *observability.OTelMetrics) *Server {
	srv := &Server{
		engine:  engine,
		privacy: pc,
		store:   s,
		metrics: m,
		otel:    otelMetrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsAllowAll)
	r.Use(srv.metricsMiddleware)
	r.Use(auth.Middleware(authValidator))

	r.Post("/chat", srv.handleChat)
	r.Post("/clear", srv.handleClear)
	r.Get("/api/privacy-status", srv.handlePrivacyStatus)
	r.Post("/api/request-cloud-access", srv.handleRequestCloudAccess)
	r.Get("/api/brain-stats", srv.handleBrainStats)
	r.Get("/api/task-history", srv.handleTaskHistory)
	r.Get("/api/agent-performance", srv.handleAgentPerformance)
	r.Get("/ws/chat", srv.handleWSChat)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	if otelMetrics != nil {
		r.Handle("/metrics/otel", otelMetrics.Handler())
	}

	srv.router = r
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// corsAllowAll permits any origin, matching §4.12's "CORS allow-all"
// requirement for a locally-hosted assistant with no cross-tenant risk.
func corsAllowAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records per-route HTTP metrics, grounded on the
// teacher's pkg/transport chi metrics middleware.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		s.metrics.RecordHTTPRequest(r.Method, pattern, rec.status, time.Since(start))
	})
}

// gzipResponse compresses the body when it is at least 1KB, per §4.12.
func gzipResponse(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	if len(body) < 1024 || !acceptsGzip(r) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
		return
	}
	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(status)
	gz := gzip.NewWriter(w)
	defer gz.Close()
	_, _ = gz.Write(body)
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range r.Header.Values("Accept-Encoding") {
		if enc == "gzip" || enc == "*" {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	gzipResponse(w, r, status, body)
}

type chatRequest struct {
	UserID string                  `json:"user_id"`
	Input  string                  `json:"input"`
	Hints  governance.RequestHints `json:"hints,omitempty"`
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return req, false
	}
	if req.Input == "" {
		http.Error(w, "input is required", http.StatusBadRequest)
		return req, false
	}
	if req.UserID == "" {
		req.UserID = auth.UserIDFromContext(r.Context())
	}
	return req, true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}
	resp := s.engine.ProcessInput(r.Context(), req.Input, req.UserID, req.Hints)
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = auth.UserIDFromContext(r.Context())
	}
	slog.Info("clearing session state", slog.String("user_id", userID))
	writeJSON(w, r, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handlePrivacyStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"mode":              s.privacy.Mode(),
		"enabled_providers": s.privacy.EnabledProviders(),
		"log":               s.privacy.SessionLog(),
	})
}

func (s *Server) handleRequestCloudAccess(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	reason := r.URL.Query().Get("reason")
	if provider == "" {
		http.Error(w, "provider is required", http.StatusBadRequest)
		return
	}
	approved := s.privacy.RequestCloudAccess(r.Context(), provider, reason)
	writeJSON(w, r, http.StatusOK, map[string]bool{"approved": approved})
}

func (s *Server) handleBrainStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetMemoryStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	turns, err := s.store.GetConversationContext(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, turns)
}

func (s *Server) handleAgentPerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"note": "per-agent success rates are tracked by the caller-supplied governance.PerformanceHistory",
	})
}

// wsEvent is one frame of the /ws/chat stream: a classification preview
// followed by the final response, per §4.12.
type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (s *Server) handleWSChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Input == "" {
			continue
		}
		if req.UserID == "" {
			req.UserID = "default"
		}

		classification := governance.ClassifyTask(req.Input)
		if err := conn.WriteJSON(wsEvent{Type: "task_classification", Data: classification}); err != nil {
			return
		}

		resp := s.engine.ProcessInput(context.Background(), req.Input, req.UserID, req.Hints)
		if err := conn.WriteJSON(wsEvent{Type: "response", Data: resp}); err != nil {
			return
		}
	}
}
