// Package ratelimit throttles outbound HTTP calls to knowledge providers
// (stocks, weather, news, cyber-intel, tech-pulse, encyclopedia, web) so a
// single noisy provider can't exhaust a shared API quota or trip an
// upstream's abuse detector. Each provider gets its own token bucket.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// ErrRateLimitExceeded is returned by Allow when a provider has no tokens
// left and the caller asked for a non-blocking check.
var ErrRateLimitExceeded = errors.New("ratelimit: exceeded")

// RateLimitError carries the provider whose bucket rejected the call.
type RateLimitError struct {
	Provider string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("ratelimit: provider %q rate limit exceeded", e.Provider)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// IsRateLimitError reports whether err is or wraps a RateLimitError.
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// ProviderLimit configures one provider's token bucket.
type ProviderLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// Config is the typed §10.3 RateLimitConfig section: per-provider limits
// plus a default applied to any provider not explicitly listed.
type Config struct {
	Enabled     bool
	Default     ProviderLimit
	PerProvider map[string]ProviderLimit
}

// SetDefaults fills in a conservative default bucket when unset.
func (c *Config) SetDefaults() {
	if c.Default.RequestsPerSecond <= 0 {
		c.Default.RequestsPerSecond = 2
	}
	if c.Default.Burst <= 0 {
		c.Default.Burst = 5
	}
}

// Validate rejects a config with a non-positive explicit per-provider rate.
func (c Config) Validate() error {
	for name, l := range c.PerProvider {
		if l.RequestsPerSecond <= 0 {
			return fmt.Errorf("ratelimit: provider %q: requests_per_second must be positive", name)
		}
		if l.Burst <= 0 {
			return fmt.Errorf("ratelimit: provider %q: burst must be positive", name)
		}
	}
	return nil
}

// Limiter holds one golang.org/x/time/rate.Limiter per knowledge provider,
// created lazily on first use from the configured (or default) bucket.
type Limiter struct {
	mu       sync.Mutex
	cfg      Config
	limiters map[string]*rate.Limiter
}

// New builds a Limiter from cfg. A disabled config still returns a usable
// Limiter whose Wait/Allow are no-ops, so callers never need to branch on
// cfg.Enabled themselves.
func New(cfg Config) *Limiter {
	cfg.SetDefaults()
	return &Limiter{cfg: cfg, limiters: make(map[string]*rate.Limiter)}
}

func (l *Limiter) forProvider(provider string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[provider]; ok {
		return lim
	}

	bucket := l.cfg.Default
	if p, ok := l.cfg.PerProvider[provider]; ok {
		bucket = p
	}
	lim := rate.NewLimiter(rate.Limit(bucket.RequestsPerSecond), bucket.Burst)
	l.limiters[provider] = lim
	return lim
}

// Wait blocks until provider has a token available, the context is
// cancelled, or (when disabled) returns immediately.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	if !l.cfg.Enabled {
		return nil
	}
	lim := l.forProvider(provider)
	err := lim.Wait(ctx)
	if err != nil && ctx.Err() == nil && lim.Burst() > 0 {
		if _, ok := ctx.Deadline(); ok {
			// x/time/rate fails at once when the next token is due after
			// ctx's deadline; block until the deadline so callers get ctx.Err().
			<-ctx.Done()
			return ctx.Err()
		}
	}
	return err
}

// Allow does a non-blocking check, returning a *RateLimitError when the
// provider's bucket is empty. Disabled limiters always allow.
func (l *Limiter) Allow(provider string) error {
	if !l.cfg.Enabled {
		return nil
	}
	if !l.forProvider(provider).Allow() {
		return &RateLimitError{Provider: provider}
	}
	return nil
}

// roundTripper throttles every outbound request for one provider through
// the shared Limiter before handing it to the wrapped transport.
type roundTripper struct {
	limiter  *Limiter
	provider string
	next     http.RoundTripper
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := rt.limiter.Wait(req.Context(), rt.provider); err != nil {
		return nil, fmt.Errorf("ratelimit: wait for provider %q: %w", rt.provider, err)
	}
	return rt.next.RoundTrip(req)
}

// WrapClient returns a shallow copy of client whose Transport waits on
// limiter's provider bucket before every request. A nil client gets
// http.DefaultTransport as its base.
func WrapClient(limiter *Limiter, provider string, client *http.Client) *http.Client {
	base := http.DefaultTransport
	var wrapped http.Client
	if client != nil {
		wrapped = *client
		if client.Transport != nil {
			base = client.Transport
		}
	}
	wrapped.Transport = &roundTripper{limiter: limiter, provider: provider, next: base}
	return &wrapped
}
