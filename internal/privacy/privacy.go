// Package privacy implements the three-mode privacy controller (§4.2):
// LOCAL, HYBRID, and CLOUD, gating every cloud model call behind an
// explicit, logged approval decision.
package privacy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mode is the controller's current state.
type Mode string

const (
	ModeLocal  Mode = "LOCAL"
	ModeHybrid Mode = "HYBRID"
	ModeCloud  Mode = "CLOUD"
)

// ApprovalFunc is a pluggable callback deciding whether to grant cloud
// access to a provider. If unset and AutoConfirm is false, the default
// decision is deny.
type ApprovalFunc func(ctx context.Context, provider, reason string) bool

// LogEntry is one line of the session's privacy audit trail.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Provider  string    `json:"provider,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Approved  bool      `json:"approved"`
}

// AvailabilityProbe reports whether a named backend currently passes its
// reachability/credential check. The controller asks this before honoring
// can_use so that an approved-but-now-unreachable provider is excluded.
type AvailabilityProbe func(provider string) bool

// Controller is the finite-state privacy machine described in §4.2. It is
// safe for concurrent use.
type Controller struct {
	mu               sync.Mutex
	mode             Mode
	enabledProviders map[string]struct{}
	autoConfirm      bool
	approve          ApprovalFunc
	available        AvailabilityProbe
	log              []LogEntry
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithAutoConfirm sets auto_confirm for non-interactive contexts that have
// pre-consented (e.g. an MCP-style adapter).
func WithAutoConfirm(auto bool) Option {
	return func(c *Controller) { c.autoConfirm = auto }
}

// WithApprovalFunc registers the interactive approval callback.
func WithApprovalFunc(fn ApprovalFunc) Option {
	return func(c *Controller) { c.approve = fn }
}

// WithAvailabilityProbe registers the backend reachability check used by
// CanUse. Defaults to "always available" if not set.
func WithAvailabilityProbe(fn AvailabilityProbe) Option {
	return func(c *Controller) { c.available = fn }
}

// New constructs a Controller starting in LOCAL mode.
func New(opts ...Option) *Controller {
	c := &Controller{
		mode:             ModeLocal,
		enabledProviders: make(map[string]struct{}),
		available:        func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the controller's current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// EnabledProviders returns the providers currently approved for cloud use.
func (c *Controller) EnabledProviders() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.enabledProviders))
	for p := range c.enabledProviders {
		out = append(out, p)
	}
	return out
}

// RequestCloudAccess asks for approval to use provider, per the reason
// given. Approval is either auto_confirm, or the registered callback; with
// neither, the request is denied. Every call appends a LogEntry.
func (c *Controller) RequestCloudAccess(ctx context.Context, provider, reason string) bool {
	approved := c.decide(ctx, provider, reason)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.appendLog("request_cloud_access", provider, reason, approved)
	if !approved {
		return false
	}

	c.enabledProviders[provider] = struct{}{}
	c.mode = ModeHybrid
	return true
}

func (c *Controller) decide(ctx context.Context, provider, reason string) bool {
	c.mu.Lock()
	autoConfirm := c.autoConfirm
	approve := c.approve
	c.mu.Unlock()

	if autoConfirm {
		return true
	}
	if approve == nil {
		return false
	}
	return approve(ctx, provider, reason)
}

// DisableProvider revokes approval for a single provider. If no providers
// remain enabled, the controller returns to LOCAL.
func (c *Controller) DisableProvider(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.enabledProviders, provider)
	c.appendLog("disable_provider", provider, "", true)
	if len(c.enabledProviders) == 0 {
		c.mode = ModeLocal
	}
}

// DisableAllCloud revokes every approved provider and returns to LOCAL from
// any state.
func (c *Controller) DisableAllCloud() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabledProviders = make(map[string]struct{})
	c.mode = ModeLocal
	c.appendLog("disable_all_cloud", "", "", true)
}

// PromoteToCloud marks the controller as fully CLOUD mode, used when the
// operator has opted out of local inference entirely. It does not by
// itself enable any provider; CanUse still checks enabled_providers.
func (c *Controller) PromoteToCloud() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeCloud
	c.appendLog("promote_to_cloud", "", "", true)
}

// CanUse reports whether provider may be called right now: its backend
// must report available, and it must be in enabled_providers. The
// orchestrator MUST call this before every cloud generate (§4.2 invariant).
func (c *Controller) CanUse(provider string) bool {
	c.mu.Lock()
	_, enabled := c.enabledProviders[provider]
	probe := c.available
	c.mu.Unlock()

	if !enabled {
		return false
	}
	return probe(provider)
}

// SessionLog returns a copy of the accumulated audit trail.
func (c *Controller) SessionLog() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.log))
	copy(out, c.log)
	return out
}

// appendLog must be called with c.mu held.
func (c *Controller) appendLog(action, provider, reason string, approved bool) {
	entry := LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Provider:  provider,
		Reason:    reason,
		Approved:  approved,
	}
	c.log = append(c.log, entry)
	slog.Info("privacy decision",
		slog.String("action", action),
		slog.String("provider", provider),
		slog.Bool("approved", approved))
}
