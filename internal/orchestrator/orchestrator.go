// Package orchestrator implements the end-to-end generation pipeline
// described in §4.10: knowledge pre-lookup, consensus-or-fallback dispatch
// across model backends gated by the Privacy Controller, synthesis of
// multiple model answers, and a single uncertainty-triggered retry.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ember-run/ember/internal/knowledge"
	"github.com/ember-run/ember/internal/model"
	"github.com/ember-run/ember/internal/observability"
	"github.com/ember-run/ember/internal/privacy"
)

// maxConsensusWorkers bounds the parallel fan-out pool per §5's concurrency
// model ("bounded worker pool ≤ 5").
const maxConsensusWorkers = 5

// fallbackOrder is the fixed backend preference used by _fallback (§4.10).
var fallbackOrder = []string{"local", "claude", "gemini", "groq", "openai"}

// synthesisOrder is the fixed preference used to pick which backend
// performs consensus synthesis.
var synthesisOrder = []string{"claude", "gemini", "openai", "groq", "local"}

// Options configures one generate() call; zero-valued fields take the
// documented default.
type Options struct {
	Context     []model.Message
	Temperature float64
	MaxTokens   int
	ForceCloud  bool
	Consensus   bool
}

func (o Options) withDefaults() Options {
	if o.Temperature == 0 {
		o.Temperature = 0.7
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = 2000
	}
	return o
}

// Orchestrator wires the backend registry, privacy controller, and
// knowledge router together behind the single public Generate operation.
type Orchestrator struct {
	backends *model.Registry
	privacy  *privacy.Controller
	router   *knowledge.Router
	metrics  *observability.Metrics
	otel     *observability.OTelMetrics
}

// New constructs an Orchestrator. metrics and otelMetrics may each be nil
// independently; both are optional, parallel recording paths for the same
// backend-call events (direct client_golang vs. the OTel metrics API).
func New(backends *model.Registry, pc *privacy.Controller, router *knowledge.Router, metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) *Orchestrator {
	return &Orchestrator{backends: backends, privacy: pc, router: router, metrics: metrics, otel: otelMetrics}
}

// Generate runs the full §4.10 pipeline and returns the response text, or
// ("", false) only when every attempted backend failed.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, opts Options) (string, bool) {
	opts = opts.withDefaults()

	lookupContext, hits := o.router.PreLookup(ctx, prompt)
	msgs := opts.Context
	if lookupContext != "" {
		msgs = append([]model.Message{{Role: "system", Content: lookupContext}}, msgs...)
	}

	text, ok := o.dispatch(ctx, prompt, msgs, opts)
	if !ok {
		return "", false
	}

	if knowledge.NeedsRetry(text, hits) && o.router != nil {
		if webBlob, _ := o.router.PreLookup(ctx, "current "+prompt); webBlob != "" {
			augmented := append([]model.Message{{Role: "system", Content: webBlob}}, msgs...)
			if retryText, retryOK := o.fallback(ctx, prompt, augmented, opts); retryOK {
				return retryText, true
			}
		}
	}

	return text, true
}

func (o *Orchestrator) dispatch(ctx context.Context, prompt string, msgs []model.Message, opts Options) (string, bool) {
	if opts.Consensus && o.countApproved(opts.ForceCloud) >= 2 {
		return o.consensus(ctx, prompt, msgs, opts)
	}
	return o.fallback(ctx, prompt, msgs, opts)
}

// eligibleBackends returns the name->client map of backends allowed for
// this call: available, privacy-approved (cloud only), and local excluded
// when force_cloud is set.
func (o *Orchestrator) eligibleBackends(forceCloud bool) map[string]model.Client {
	out := make(map[string]model.Client)
	for name, client := range o.backends.Available() {
		if forceCloud && client.Status().Kind == model.KindLocal {
			continue
		}
		if client.Status().Kind == model.KindCloud && o.privacy != nil && !o.privacy.CanUse(name) {
			continue
		}
		out[name] = client
	}
	return out
}

func (o *Orchestrator) countApproved(forceCloud bool) int {
	return len(o.eligibleBackends(forceCloud))
}

// fallback tries backends in the fixed order local -> claude -> gemini ->
// groq -> openai, returning the first successful response.
func (o *Orchestrator) fallback(ctx context.Context, prompt string, msgs []model.Message, opts Options) (string, bool) {
	eligible := o.eligibleBackends(opts.ForceCloud)
	for _, name := range fallbackOrder {
		client, ok := eligible[name]
		if !ok {
			continue
		}
		if text, ok := o.callBackend(ctx, name, client, prompt, msgs, opts); ok {
			return text, true
		}
	}
	return "", false
}

// consensus fans generation out to every eligible backend in parallel
// (bounded pool), then synthesizes a single answer from the responses.
func (o *Orchestrator) consensus(ctx context.Context, prompt string, msgs []model.Message, opts Options) (string, bool) {
	eligible := o.eligibleBackends(opts.ForceCloud)
	if len(eligible) == 1 {
		for name, client := range eligible {
			return o.callBackend(ctx, name, client, prompt, msgs, opts)
		}
	}

	names := make([]string, 0, len(eligible))
	for name := range eligible {
		names = append(names, name)
	}
	sort.Strings(names)

	responses := make(map[string]string, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConsensusWorkers)
	for _, name := range names {
		name := name
		client := eligible[name]
		g.Go(func() error {
			text, ok := o.callBackend(gctx, name, client, prompt, msgs, opts)
			if !ok {
				return nil
			}
			mu.Lock()
			responses[name] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(responses) == 0 {
		return "", false
	}
	if len(responses) == 1 {
		for _, text := range responses {
			return text, true
		}
	}
	return o.synthesize(ctx, prompt, responses, eligible), true
}

// synthesize builds a "derive truth" meta-prompt over the collected
// per-backend answers and asks a preferred backend to reconcile them,
// falling back to the longest original response if synthesis fails.
func (o *Orchestrator) synthesize(ctx context.Context, query string, responses map[string]string, eligible map[string]model.Client) string {
	metaPrompt := buildSynthesisPrompt(query, responses)

	for _, name := range synthesisOrder {
		client, ok := eligible[name]
		if !ok {
			continue
		}
		text, ok := client.Generate(ctx, metaPrompt, nil, 0.3, 1000)
		if ok && text != "" {
			return text
		}
	}

	return longestResponse(responses)
}

func buildSynthesisPrompt(query string, responses map[string]string) string {
	names := make([]string, 0, len(responses))
	for name := range responses {
		names = append(names, name)
	}
	sort.Strings(names)

	prompt := fmt.Sprintf("Multiple assistants answered the question %q. Derive the single most accurate, complete answer, reconciling any disagreement:\n\n", query)
	for _, name := range names {
		prompt += fmt.Sprintf("--- %s ---\n%s\n\n", name, responses[name])
	}
	return prompt
}

func longestResponse(responses map[string]string) string {
	var best string
	for _, text := range responses {
		if len(text) > len(best) {
			best = text
		}
	}
	return best
}

func (o *Orchestrator) callBackend(ctx context.Context, name string, client model.Client, prompt string, msgs []model.Message, opts Options) (string, bool) {
	start := time.Now()
	text, ok := client.Generate(ctx, prompt, msgs, opts.Temperature, opts.MaxTokens)
	elapsed := time.Since(start)
	if o.metrics != nil {
		o.metrics.RecordBackendAttempt(name, ok, elapsed)
	}
	if o.otel != nil {
		o.otel.RecordBackendCall(ctx, name, ok, elapsed.Seconds())
	}
	if !ok {
		slog.Debug("orchestrator: backend attempt failed", slog.String("backend", name))
	}
	return text, ok
}
