package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-run/ember/internal/knowledge"
	"github.com/ember-run/ember/internal/model"
	"github.com/ember-run/ember/internal/privacy"
)

type fakeBackend struct {
	name      string
	kind      model.Kind
	response  string
	available bool
}

func (f *fakeBackend) Generate(ctx context.Context, prompt string, msgs []model.Message, temperature float64, maxTokens int) (string, bool) {
	if f.response == "" {
		return "", false
	}
	return f.response, true
}

func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Status() model.Status {
	privacyLevel := model.PrivacyFull
	if f.kind == model.KindCloud {
		privacyLevel = model.PrivacyRequiresApproval
	}
	return model.Status{Provider: f.name, Kind: f.kind, Privacy: privacyLevel}
}

func emptyRouter() *knowledge.Router {
	return knowledge.NewRouter(nil, nil, nil, nil, nil, nil, nil)
}

func TestGenerateFallbackReturnsFirstSuccessInOrder(t *testing.T) {
	backends := model.NewRegistry()
	require.NoError(t, backends.RegisterBackend("local", &fakeBackend{name: "local", kind: model.KindLocal, available: false}))
	require.NoError(t, backends.RegisterBackend("claude", &fakeBackend{name: "claude", kind: model.KindCloud, available: true, response: "claude says hi"}))

	pc := privacy.New(privacy.WithAutoConfirm(true), privacy.WithAvailabilityProbe(func(string) bool { return true }))
	pc.RequestCloudAccess(context.Background(), "claude", "test")

	o := New(backends, pc, emptyRouter(), nil, nil)
	text, ok := o.Generate(context.Background(), "hello", Options{Consensus: false})
	assert.True(t, ok)
	assert.Equal(t, "claude says hi", text)
}

func TestGenerateReturnsFalseWhenAllBackendsFail(t *testing.T) {
	backends := model.NewRegistry()
	require.NoError(t, backends.RegisterBackend("local", &fakeBackend{name: "local", kind: model.KindLocal, available: true}))

	o := New(backends, privacy.New(), emptyRouter(), nil, nil)
	_, ok := o.Generate(context.Background(), "hello", Options{})
	assert.False(t, ok)
}

func TestGenerateCloudBackendGatedByPrivacy(t *testing.T) {
	backends := model.NewRegistry()
	require.NoError(t, backends.RegisterBackend("claude", &fakeBackend{name: "claude", kind: model.KindCloud, available: true, response: "should not be used"}))

	o := New(backends, privacy.New(), emptyRouter(), nil, nil)
	_, ok := o.Generate(context.Background(), "hello", Options{})
	assert.False(t, ok, "cloud backend must not be used without privacy approval")
}

func TestConsensusSynthesizesFromMultipleBackends(t *testing.T) {
	backends := model.NewRegistry()
	require.NoError(t, backends.RegisterBackend("local", &fakeBackend{name: "local", kind: model.KindLocal, available: true, response: "local answer short"}))
	require.NoError(t, backends.RegisterBackend("claude", &fakeBackend{name: "claude", kind: model.KindCloud, available: true, response: "SYNTHESIZED: the real answer"}))

	pc := privacy.New(privacy.WithAutoConfirm(true), privacy.WithAvailabilityProbe(func(string) bool { return true }))
	pc.RequestCloudAccess(context.Background(), "claude", "test")

	o := New(backends, pc, emptyRouter(), nil, nil)
	text, ok := o.Generate(context.Background(), "hello", Options{Consensus: true})
	require.True(t, ok)
	assert.True(t, strings.Contains(text, "SYNTHESIZED") || strings.Contains(text, "local answer short"))
}

func TestOptionsDefaultsApplied(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 2000, opts.MaxTokens)
}

func TestLongestResponsePicksLongest(t *testing.T) {
	got := longestResponse(map[string]string{"a": "short", "b": "a much longer answer here"})
	assert.Equal(t, "a much longer answer here", got)
}
