package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name      string
	available bool
	relevant  bool
	matched   bool
	blob      string
}

func (f *fakeProvider) Name() string             { return f.name }
func (f *fakeProvider) Available() bool          { return f.available }
func (f *fakeProvider) IsRelevant(q string) bool { return f.relevant }
func (f *fakeProvider) LookupForPrompt(ctx context.Context, q string) (bool, string) {
	return f.matched, f.blob
}

func TestRouterConcatenatesMultipleHits(t *testing.T) {
	stocks := &fakeProvider{name: "stocks", available: true, relevant: true, matched: true, blob: "AAPL: $190"}
	weather := &fakeProvider{name: "weather", available: true, relevant: true, matched: true, blob: "Weather: sunny"}

	r := NewRouter(stocks, weather, nil, nil, nil, nil, nil)
	blob, hits := r.PreLookup(context.Background(), "AAPL and weather")

	assert.Contains(t, blob, "AAPL: $190")
	assert.Contains(t, blob, "Weather: sunny")
	assert.Len(t, hits, 2)
}

func TestRouterFallsThroughToEncyclopediaWhenNoPrimaryHit(t *testing.T) {
	stocks := &fakeProvider{name: "stocks", available: true, relevant: false}
	enc := &fakeProvider{name: "encyclopedia", available: true, relevant: true, matched: true, blob: "Paris is the capital of France"}

	r := NewRouter(stocks, nil, nil, nil, nil, enc, nil)
	blob, hits := r.PreLookup(context.Background(), "what is Paris")

	assert.Contains(t, blob, "Paris is the capital of France")
	require.Len(t, hits, 1)
	assert.Equal(t, "encyclopedia", hits[0].Provider)
}

func TestRouterFallsThroughToWebWhenDetectorFires(t *testing.T) {
	web := &fakeProvider{name: "web", available: true, matched: true, blob: "latest result"}

	r := NewRouter(nil, nil, nil, nil, nil, nil, web)
	blob, hits := r.PreLookup(context.Background(), "what's happening right now")

	assert.Contains(t, blob, "latest result")
	require.Len(t, hits, 1)
}

func TestRouterReturnsEmptyWhenNothingMatches(t *testing.T) {
	r := NewRouter(nil, nil, nil, nil, nil, nil, nil)
	blob, hits := r.PreLookup(context.Background(), "hello there")
	assert.Empty(t, blob)
	assert.Empty(t, hits)
}

func TestNeedsRetryOnlyWhenUncertainAndNoPriorHits(t *testing.T) {
	assert.True(t, NeedsRetry("I don't have access to real-time stock prices.", nil))
	assert.False(t, NeedsRetry("I don't have access to real-time stock prices.", []Hit{{Provider: "stocks"}}))
	assert.False(t, NeedsRetry("The weather today is sunny.", nil))
}
