package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// These backends are only exercised end-to-end against a live provider; here
// we verify the credential-gating contract that the privacy controller and
// orchestrator depend on: no API key means Available() is false and
// Generate never attempts a call.

func TestAnthropicBackendUnavailableWithoutKey(t *testing.T) {
	b := NewAnthropicBackend("", "claude-3-5-sonnet-20241022", 0)
	assert.False(t, b.Available())
	assert.Equal(t, "claude", b.Status().Provider)
	assert.Equal(t, PrivacyRequiresApproval, b.Status().Privacy)

	_, ok := b.Generate(context.Background(), "hi", nil, 0, 0)
	assert.False(t, ok)
}

func TestOpenAIBackendUnavailableWithoutKey(t *testing.T) {
	b := NewOpenAIBackend("", "gpt-4o")
	assert.False(t, b.Available())
	assert.Equal(t, "openai", b.Status().Provider)

	_, ok := b.Generate(context.Background(), "hi", nil, 0, 0)
	assert.False(t, ok)
}

func TestGroqBackendReusesOpenAIClientWithDistinctProviderTag(t *testing.T) {
	b := NewGroqBackend("", "llama-3.3-70b-versatile")
	assert.False(t, b.Available())
	assert.Equal(t, "groq", b.Status().Provider)
	assert.Equal(t, KindCloud, b.Status().Kind)
}

func TestGeminiBackendUnavailableWithoutKey(t *testing.T) {
	b := NewGeminiBackend(context.Background(), "", "gemini-2.0-flash")
	assert.False(t, b.Available())
	assert.Equal(t, "gemini", b.Status().Provider)

	_, ok := b.Generate(context.Background(), "hi", nil, 0, 0)
	assert.False(t, ok)
}
