package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowRejectsOnceBurstIsSpent(t *testing.T) {
	l := New(Config{
		Enabled: true,
		PerProvider: map[string]ProviderLimit{
			"stocks": {RequestsPerSecond: 100, Burst: 2},
		},
	})

	require.NoError(t, l.Allow("stocks"))
	require.NoError(t, l.Allow("stocks"))

	err := l.Allow("stocks")
	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))
}

func TestAllowDisabledAlwaysSucceeds(t *testing.T) {
	l := New(Config{Enabled: false, PerProvider: map[string]ProviderLimit{
		"weather": {RequestsPerSecond: 0.001, Burst: 1},
	}})

	for i := 0; i < 10; i++ {
		assert.NoError(t, l.Allow("weather"))
	}
}

func TestUnlistedProviderUsesDefaultBucket(t *testing.T) {
	l := New(Config{
		Enabled: true,
		Default: ProviderLimit{RequestsPerSecond: 50, Burst: 1},
	})

	require.NoError(t, l.Allow("news"))
	assert.Error(t, l.Allow("news"))
}

func TestWaitBlocksUntilContextCancelled(t *testing.T) {
	l := New(Config{
		Enabled: true,
		PerProvider: map[string]ProviderLimit{
			"cyber": {RequestsPerSecond: 0.001, Burst: 1},
		},
	})
	require.NoError(t, l.Wait(context.Background(), "cyber"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "cyber")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSetDefaultsFillsConservativeBucket(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.Equal(t, 2.0, cfg.Default.RequestsPerSecond)
	assert.Equal(t, 5, cfg.Default.Burst)
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	cfg := Config{PerProvider: map[string]ProviderLimit{"web": {RequestsPerSecond: 0, Burst: 1}}}
	assert.Error(t, cfg.Validate())

	cfg = Config{PerProvider: map[string]ProviderLimit{"web": {RequestsPerSecond: 1, Burst: 0}}}
	assert.Error(t, cfg.Validate())
}

func TestWrapClientBlocksUntilBucketRefills(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	l := New(Config{
		Enabled: true,
		PerProvider: map[string]ProviderLimit{
			"stocks": {RequestsPerSecond: 0.001, Burst: 1},
		},
	})
	client := WrapClient(l, "stocks", nil)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWrapClientPreservesBaseClientSettings(t *testing.T) {
	base := &http.Client{Timeout: 5 * time.Second}
	l := New(Config{Enabled: false})

	wrapped := WrapClient(l, "weather", base)
	assert.Equal(t, base.Timeout, wrapped.Timeout)
	assert.NotSame(t, base, wrapped)
}
