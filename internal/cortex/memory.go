package cortex

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"
)

// DurableStore persists SHORT_TERM/LONG_TERM/ARCHIVE items. Implemented by
// internal/store against the permanent store's knowledge table (§4.5).
type DurableStore interface {
	SaveItem(ctx context.Context, it *Item) error
	RecallCandidates(ctx context.Context, layer Layer, tokens []string) ([]*Item, error)
	UpdateAccess(ctx context.Context, id string, lastAccessed time.Time, accessCount int) error
	ListByLayer(ctx context.Context, layer Layer) ([]*Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// RecallResult is one ranked hit returned from Recall.
type RecallResult struct {
	Item  *Item
	Score float64
}

// Memory is the in-process CORTEX state machine: FLASH and WORKING queues
// plus a handle to the durable store for the persistent layers.
type Memory struct {
	mu      sync.Mutex
	flash   []*Item
	working []*Item
	store   DurableStore

	lastConsolidation time.Time
}

// New constructs an empty CORTEX memory backed by store.
func New(store DurableStore) *Memory {
	return &Memory{store: store}
}

// Capture pushes a new item into FLASH with its evaluated importance,
// dropping the oldest item if FLASH is at capacity.
func (m *Memory) Capture(content string, now time.Time) *Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	it := NewItem(content, QuickScore(content), now)
	m.flash = append(m.flash, it)

	if max := Layers[LayerFlash].MaxItems; len(m.flash) > max {
		dropped := m.flash[0]
		m.flash = m.flash[1:]
		slog.Debug("cortex flash eviction", slog.String("id", dropped.ID))
	}
	return it
}

// Tick runs the promotion/eviction pass described in §4.4: FLASH ages into
// WORKING or is dropped; WORKING ages into SHORT_TERM (persistent) or is
// dropped; once an hour, a consolidation pass runs SHORT_TERM→LONG_TERM and
// LONG_TERM→ARCHIVE promotion.
func (m *Memory) Tick(ctx context.Context, now time.Time) {
	m.mu.Lock()
	// WORKING is aged before FLASH, so an item promoted out of FLASH on this
	// tick stays in WORKING until the next tick.
	promoted := m.tickWorking(ctx, now)
	m.tickFlash(now)
	runConsolidation := now.Sub(m.lastConsolidation) >= time.Hour
	if runConsolidation {
		m.lastConsolidation = now
	}
	m.mu.Unlock()

	for _, it := range promoted {
		if err := m.store.SaveItem(ctx, it); err != nil {
			slog.Warn("cortex: failed to persist promoted item", slog.String("error", err.Error()))
		}
	}

	if runConsolidation {
		m.consolidate(ctx, now)
	}
}

// tickFlash must be called with m.mu held.
func (m *Memory) tickFlash(now time.Time) {
	var kept []*Item
	for _, it := range m.flash {
		age := now.Sub(it.CreatedAt)
		if age < 30*time.Second {
			kept = append(kept, it)
			continue
		}
		if it.Importance >= Layers[LayerFlash].PromotionImportance || it.AccessCount > 0 {
			it.Layer = LayerWorking
			it.PromotedAt = now
			m.working = append(m.working, it)
		}
	}
	m.flash = kept
}

// tickWorking must be called with m.mu held. Returns items promoted to
// SHORT_TERM for the caller to persist outside the lock.
func (m *Memory) tickWorking(ctx context.Context, now time.Time) []*Item {
	cfg := Layers[LayerWorking]
	var kept []*Item
	var promoted []*Item

	for _, it := range m.working {
		hours := now.Sub(it.PromotedAt).Hours()
		strength := it.Importance * math.Pow(1-cfg.DecayRatePerHour, hours)

		if it.Importance >= 5 || it.AccessCount > 2 {
			it.Layer = LayerShortTerm
			it.PromotedAt = now
			promoted = append(promoted, it)
			continue
		}
		if strength < 1.0 || now.Sub(it.CreatedAt) > 30*time.Minute {
			continue
		}
		kept = append(kept, it)
	}
	m.working = kept
	return promoted
}

// consolidate runs the hourly SHORT_TERM→LONG_TERM and LONG_TERM→ARCHIVE
// promotion pass against the durable store.
func (m *Memory) consolidate(ctx context.Context, now time.Time) {
	shortTerm, err := m.store.ListByLayer(ctx, LayerShortTerm)
	if err != nil {
		slog.Warn("cortex: consolidation list failed", slog.String("error", err.Error()))
		return
	}

	lastFive := make([]*Item, len(shortTerm))
	copy(lastFive, shortTerm)
	sort.SliceStable(lastFive, func(i, j int) bool { return lastFive[i].CreatedAt.After(lastFive[j].CreatedAt) })
	if len(lastFive) > 5 {
		lastFive = lastFive[:5]
	}

	for _, it := range shortTerm {
		it.Importance = DeepScore(it, lastFive)
		if it.Importance >= 7 || it.AccessCount > 5 {
			it.Layer = LayerLongTerm
			it.PromotedAt = now
			if err := m.store.SaveItem(ctx, it); err != nil {
				slog.Warn("cortex: failed to promote to long term", slog.String("error", err.Error()))
			}
		}
	}

	longTerm, err := m.store.ListByLayer(ctx, LayerLongTerm)
	if err != nil {
		slog.Warn("cortex: consolidation list failed", slog.String("error", err.Error()))
		return
	}
	for _, it := range longTerm {
		if now.Sub(it.LastAccessed) > 365*24*time.Hour && it.Importance < 5 {
			it.Layer = LayerArchive
			if len(it.Content) > 200 {
				it.Content = it.Content[:200]
			}
			if err := m.store.SaveItem(ctx, it); err != nil {
				slog.Warn("cortex: failed to archive item", slog.String("error", err.Error()))
			}
		}
	}
}

// Recall tokenizes query, scans in-memory layers first then persistent
// layers, ranks every match by
// importance * (1 / (days_since_last_access + 1)), returns the top-k, and
// updates access bookkeeping on the returned items.
func (m *Memory) Recall(ctx context.Context, query string, limit int, now time.Time) []RecallResult {
	tokens := tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return nil
	}

	var candidates []*Item

	m.mu.Lock()
	for _, it := range m.flash {
		if it.matchesTokens(tokens) {
			candidates = append(candidates, it)
		}
	}
	for _, it := range m.working {
		if it.matchesTokens(tokens) {
			candidates = append(candidates, it)
		}
	}
	m.mu.Unlock()

	for _, layer := range []Layer{LayerShortTerm, LayerLongTerm, LayerArchive} {
		hits, err := m.store.RecallCandidates(ctx, layer, tokens)
		if err != nil {
			slog.Warn("cortex: recall failed", slog.String("layer", string(layer)), slog.String("error", err.Error()))
			continue
		}
		candidates = append(candidates, hits...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Importance > candidates[j].Importance
	})

	results := make([]RecallResult, 0, len(candidates))
	for _, it := range candidates {
		days := now.Sub(it.LastAccessed).Hours() / 24
		score := it.Importance * (1.0 / (days + 1))
		results = append(results, RecallResult{Item: it, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}

	for _, r := range results {
		it := r.Item
		it.AccessCount++
		it.LastAccessed = now
		if it.Layer == LayerShortTerm || it.Layer == LayerLongTerm || it.Layer == LayerArchive {
			if err := m.store.UpdateAccess(ctx, it.ID, now, it.AccessCount); err != nil {
				slog.Warn("cortex: access update failed", slog.String("error", err.Error()))
			}
		}
	}
	return results
}
