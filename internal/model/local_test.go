package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackendAvailableReflectsProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewLocalBackend(srv.URL, "llama3")
	assert.True(t, b.Available())
	assert.Equal(t, KindLocal, b.Status().Kind)
	assert.Equal(t, PrivacyFull, b.Status().Privacy)
}

func TestLocalBackendUnreachableIsUnavailable(t *testing.T) {
	b := NewLocalBackend("http://127.0.0.1:1", "llama3")
	assert.False(t, b.Available())
}

func TestLocalBackendGenerateReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/chat":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"hello there"},"done":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b := NewLocalBackend(srv.URL, "llama3")
	require.True(t, b.Available())

	text, ok := b.Generate(context.Background(), "hi", nil, 0.5, 128)
	require.True(t, ok)
	assert.Equal(t, "hello there", text)
}

func TestLocalBackendGenerateFailsOnEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/chat":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}`))
		}
	}))
	defer srv.Close()

	b := NewLocalBackend(srv.URL, "llama3")
	_, ok := b.Generate(context.Background(), "hi", nil, 0, 0)
	assert.False(t, ok)
}
