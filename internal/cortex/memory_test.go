package cortex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDurableStore struct {
	items map[Layer][]*Item
}

func newFakeDurableStore() *fakeDurableStore {
	return &fakeDurableStore{items: make(map[Layer][]*Item)}
}

func (f *fakeDurableStore) SaveItem(ctx context.Context, it *Item) error {
	for layer, items := range f.items {
		for i, existing := range items {
			if existing.ID == it.ID {
				f.items[layer] = append(items[:i], items[i+1:]...)
			}
		}
	}
	f.items[it.Layer] = append(f.items[it.Layer], it)
	return nil
}

func (f *fakeDurableStore) RecallCandidates(ctx context.Context, layer Layer, tokens []string) ([]*Item, error) {
	var out []*Item
	for _, it := range f.items[layer] {
		if it.matchesTokens(tokens) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeDurableStore) UpdateAccess(ctx context.Context, id string, lastAccessed time.Time, accessCount int) error {
	return nil
}

func (f *fakeDurableStore) ListByLayer(ctx context.Context, layer Layer) ([]*Item, error) {
	return f.items[layer], nil
}

func (f *fakeDurableStore) DeleteItem(ctx context.Context, id string) error {
	return nil
}

func TestQuickScoreClampedAndLexiconAware(t *testing.T) {
	assert.Equal(t, 5.5, QuickScore("remember this"))
	assert.True(t, QuickScore("please remember this is critical and urgent, never forget it, deadline must be met?") <= 10)
}

func TestCaptureEvictsOldestAtFlashCapacity(t *testing.T) {
	store := newFakeDurableStore()
	m := New(store)
	now := time.Now()

	for i := 0; i < Layers[LayerFlash].MaxItems+10; i++ {
		m.Capture("item", now)
	}
	assert.Len(t, m.flash, Layers[LayerFlash].MaxItems)
}

func TestTickPromotesAgedFlashItemsToWorking(t *testing.T) {
	store := newFakeDurableStore()
	m := New(store)
	base := time.Now()

	m.Capture("remember this important fact", base)
	later := base.Add(time.Minute)
	m.Tick(context.Background(), later)

	assert.Empty(t, m.flash)
	require.Len(t, m.working, 1)
	assert.Equal(t, LayerWorking, m.working[0].Layer)
}

func TestTickDropsLowImportanceAgedFlashItems(t *testing.T) {
	store := newFakeDurableStore()
	m := New(store)
	base := time.Now()

	it := NewItem("just kidding, nevermind", 1, base)
	m.flash = append(m.flash, it)

	m.Tick(context.Background(), base.Add(time.Minute))
	assert.Empty(t, m.flash)
	assert.Empty(t, m.working)
}

func TestTickPromotesHighImportanceWorkingItemToShortTerm(t *testing.T) {
	store := newFakeDurableStore()
	m := New(store)
	base := time.Now()

	it := NewItem("critical deadline", 9, base)
	it.Layer = LayerWorking
	it.PromotedAt = base
	m.working = append(m.working, it)

	m.Tick(context.Background(), base.Add(time.Minute))
	assert.Empty(t, m.working)
	require.Len(t, store.items[LayerShortTerm], 1)
}

func TestConsolidatePromotesUsingDeepScore(t *testing.T) {
	store := newFakeDurableStore()
	m := New(store)
	now := time.Now()

	// Importance 6 alone is below the LONG_TERM threshold of 7, but a high
	// access count pushes DeepScore's access-count bonus over the line.
	borderline := NewItem("check the deploy pipeline status", 6, now)
	borderline.Layer = LayerShortTerm
	borderline.AccessCount = 6
	store.items[LayerShortTerm] = append(store.items[LayerShortTerm], borderline)

	untouched := NewItem("what's for lunch today", 6, now)
	untouched.Layer = LayerShortTerm
	store.items[LayerShortTerm] = append(store.items[LayerShortTerm], untouched)

	m.consolidate(context.Background(), now)

	assert.Equal(t, LayerLongTerm, borderline.Layer)
	assert.Greater(t, borderline.Importance, 6.0)
	assert.Equal(t, LayerShortTerm, untouched.Layer)
}

func TestRecallRanksByImportanceAndRecency(t *testing.T) {
	store := newFakeDurableStore()
	m := New(store)
	now := time.Now()

	m.Capture("I love pizza on Fridays", now)
	m.Capture("pizza delivery was late today", now)

	results := m.Recall(context.Background(), "pizza", 5, now)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Contains(t, r.Item.Keywords, "pizza")
	}
}

func TestRecallPrefersMoreRecentlyAccessedWhenImportanceEqual(t *testing.T) {
	store := newFakeDurableStore()
	m := New(store)
	now := time.Now()

	m.Capture("pizza night plans", now)
	m.Capture("pizza night plans again", now)

	m.flash[0].Importance = 5
	m.flash[0].LastAccessed = now.Add(-240 * time.Hour)
	m.flash[1].Importance = 5
	m.flash[1].LastAccessed = now

	results := m.Recall(context.Background(), "pizza", 5, now)
	require.Len(t, results, 2)
	assert.Equal(t, m.flash[1].ID, results[0].Item.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRecallReturnsEmptyForEmptyQuery(t *testing.T) {
	store := newFakeDurableStore()
	m := New(store)
	results := m.Recall(context.Background(), "   ", 5, time.Now())
	assert.Empty(t, results)
}
