package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTelMetricsRecordBackendCallExposesPrometheusSeries(t *testing.T) {
	m, err := NewOTelMetrics()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	m.RecordBackendCall(context.Background(), "claude", true, 0.25)

	req := httptest.NewRequest(http.MethodGet, "/metrics/otel", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ember_backend_calls_total")
	assert.Contains(t, rec.Body.String(), `backend="claude"`)
}

func TestOTelMetricsNilReceiverNoOps(t *testing.T) {
	var m *OTelMetrics
	m.RecordBackendCall(context.Background(), "claude", true, 0.1)
	require.NoError(t, m.Shutdown(context.Background()))

	req := httptest.NewRequest(http.MethodGet, "/metrics/otel", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewOTelMetricsBuildsDistinctRegistryPerInstance(t *testing.T) {
	a, err := NewOTelMetrics()
	require.NoError(t, err)
	b, err := NewOTelMetrics()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Shutdown(context.Background())
		_ = b.Shutdown(context.Background())
	})

	assert.NotSame(t, a.registry, b.registry)
}
