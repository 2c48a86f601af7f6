// Package memoryintegration implements the façade described in §4.7: it
// binds CORTEX, the permanent store, and the compression engine together
// behind capture/recall/sync/consolidate, serialized per-instance so it is
// safe to call from the main request handler.
package memoryintegration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ember-run/ember/internal/compression"
	"github.com/ember-run/ember/internal/cortex"
	"github.com/ember-run/ember/internal/store"
)

const cortexPromotedCategory = "cortex_promoted"
const ultraThunkCategory = "ultrathunk"

// defaultSyncInterval is the façade's periodic compression sync cadence.
const defaultSyncInterval = 5 * time.Minute

// RecallHit is one merged, source-tagged recall result.
type RecallHit struct {
	Content    string
	Source     string // "cortex", "brain", "ultrathunk"
	Importance float64
	Recency    string
}

// ConsolidationReport summarizes a full consolidation pass.
type ConsolidationReport struct {
	RanAt             time.Time
	StoreConsolidated bool
	CortexTicked      bool
}

// Integration is the memory façade. All exported methods take an internal
// lock, matching the "serialized per-instance" concurrency note.
type Integration struct {
	mu sync.Mutex

	cortex *cortex.Memory
	store  *store.Store

	syncInterval  time.Duration
	lastSync      time.Time
	recentCluster map[string][]compression.ClusterItem
	thunkFirings  []*compression.Thunk
}

// New constructs a façade over the given CORTEX memory and permanent store.
func New(c *cortex.Memory, s *store.Store) *Integration {
	return &Integration{
		cortex:        c,
		store:         s,
		syncInterval:  defaultSyncInterval,
		recentCluster: make(map[string][]compression.ClusterItem),
	}
}

// Capture pushes text into CORTEX, optionally storing a conversation turn,
// and ticks CORTEX. Items that CORTEX promotes to LONG_TERM are not copied
// into the permanent store's knowledge table.
func (i *Integration) Capture(ctx context.Context, text string, topic, response string, now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.cortex.Capture(text, now)

	if response != "" {
		if _, err := i.store.StoreConversation(ctx, text, response, cortex.QuickScore(text), now); err != nil {
			slog.Warn("memory integration: store conversation failed", slog.String("error", err.Error()))
		}
	}

	if topic != "" {
		i.recentCluster[topic] = append(i.recentCluster[topic], compression.ClusterItem{
			Content: text, Response: response, Timestamp: now,
		})
	}

	i.cortex.Tick(ctx, now)
}

// Recall merges deduplicated hits from CORTEX, the permanent store, and
// thunk firing, each tagged with its source.
func (i *Integration) Recall(ctx context.Context, query string, limit int, useCortexFirst bool, now time.Time) []RecallHit {
	i.mu.Lock()
	defer i.mu.Unlock()

	seen := make(map[string]struct{})
	var out []RecallHit

	addCortex := func() {
		for _, r := range i.cortex.Recall(ctx, query, limit, now) {
			if _, ok := seen[r.Item.Content]; ok {
				continue
			}
			seen[r.Item.Content] = struct{}{}
			out = append(out, RecallHit{
				Content:    r.Item.Content,
				Source:     "cortex",
				Importance: r.Item.Importance,
				Recency:    recencyLabel(now.Sub(r.Item.LastAccessed)),
			})
		}
	}
	addBrain := func() {
		entries, err := i.store.SearchKnowledge(ctx, query, limit)
		if err != nil {
			slog.Warn("memory integration: brain recall failed", slog.String("error", err.Error()))
			return
		}
		for _, e := range entries {
			if _, ok := seen[e.Value]; ok {
				continue
			}
			seen[e.Value] = struct{}{}
			out = append(out, RecallHit{
				Content:    e.Value,
				Source:     "brain",
				Importance: e.Importance,
				Recency:    recencyLabel(now.Sub(e.UpdatedAt)),
			})
		}
	}

	if useCortexFirst {
		addCortex()
		addBrain()
	} else {
		addBrain()
		addCortex()
	}

	for _, thunk := range i.thunkFirings {
		if len(out) >= limit {
			break
		}
		if !thunk.Matches(query) {
			continue
		}
		fired := thunk.Generate(now, nil)
		if _, ok := seen[fired]; ok {
			continue
		}
		seen[fired] = struct{}{}
		out = append(out, RecallHit{Content: fired, Source: "ultrathunk", Importance: thunk.Confidence * 10, Recency: "generated"})
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func recencyLabel(age time.Duration) string {
	switch {
	case age < time.Hour:
		return "just now"
	case age < 24*time.Hour:
		return "today"
	case age < 7*24*time.Hour:
		return "this week"
	default:
		return "older"
	}
}

// MaybeSync runs the periodic compression sync if syncInterval has elapsed
// since the last run: any topic cluster with >= 3 items is compressed via
// the Compression Engine and the resulting thunk is stored under
// category="ultrathunk" as well as kept in-process for firing.
func (i *Integration) MaybeSync(ctx context.Context, now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if now.Sub(i.lastSync) < i.syncInterval {
		return
	}
	i.lastSync = now

	for topic, items := range i.recentCluster {
		if len(items) < 3 {
			continue
		}
		thunk, err := compression.CompressPattern(items)
		if err != nil {
			slog.Debug("memory integration: cluster not compressible", slog.String("topic", topic), slog.String("error", err.Error()))
			continue
		}
		i.thunkFirings = append(i.thunkFirings, thunk)

		if err := i.store.StoreKnowledge(ctx, store.KnowledgeEntry{
			Category:   ultraThunkCategory,
			Key:        thunk.ID,
			Value:      thunk.Template,
			Importance: thunk.Confidence * 10,
			UpdatedAt:  now,
		}); err != nil {
			slog.Warn("memory integration: store thunk failed", slog.String("error", err.Error()))
		}
		delete(i.recentCluster, topic)
	}
}

// Consolidate runs full consolidation on every underlying system and
// returns a report.
func (i *Integration) Consolidate(ctx context.Context, now time.Time) ConsolidationReport {
	i.mu.Lock()
	defer i.mu.Unlock()

	report := ConsolidationReport{RanAt: now}

	i.cortex.Tick(ctx, now)
	report.CortexTicked = true

	if err := i.store.ConsolidateMemory(ctx, now); err != nil {
		slog.Warn("memory integration: store consolidation failed", slog.String("error", err.Error()))
	} else {
		report.StoreConsolidated = true
	}

	return report
}
