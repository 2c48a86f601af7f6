package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-run/ember/internal/cortex"
	"github.com/ember-run/ember/internal/governance"
	"github.com/ember-run/ember/internal/knowledge"
	"github.com/ember-run/ember/internal/memoryintegration"
	"github.com/ember-run/ember/internal/model"
	"github.com/ember-run/ember/internal/observability"
	"github.com/ember-run/ember/internal/orchestrator"
	"github.com/ember-run/ember/internal/privacy"
	"github.com/ember-run/ember/internal/store"
)

type echoBackend struct{}

func (echoBackend) Generate(ctx context.Context, prompt string, msgs []model.Message, temperature float64, maxTokens int) (string, bool) {
	return "hello from ember", true
}
func (echoBackend) Available() bool      { return true }
func (echoBackend) Status() model.Status { return model.Status{Provider: "echo", Kind: model.KindLocal} }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.Open("sqlite3", ":memory:", store.DialectSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mem := memoryintegration.New(cortex.New(store.NewCortexAdapter(s)), s)
	backends := model.NewRegistry()
	require.NoError(t, backends.RegisterBackend("local", echoBackend{}))
	router := knowledge.NewRouter(nil, nil, nil, nil, nil, nil, nil)
	pc := privacy.New()
	orch := orchestrator.New(backends, pc, router, nil, nil)
	engine := governance.NewEngine(orch, mem, s, nil)

	return New(engine, pc, s, observability.NewMetrics("ember_test"), nil, nil)
}

func TestHandleChatReturnsResponse(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id":"u1","input":"explain how does this work"}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello from ember")
}

func TestHandleChatRejectsMissingInput(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id":"u1"}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePrivacyStatusReportsLocalByDefault(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/privacy-status", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "LOCAL")
}

func TestCORSPreflightReturnsNoContent(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleBrainStatsReturnsCounts(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/brain-stats", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
