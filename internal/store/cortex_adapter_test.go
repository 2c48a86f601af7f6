package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ember-run/ember/internal/cortex"
)

func TestCortexAdapterSaveAndListByLayer(t *testing.T) {
	s := newTestStore(t)
	adapter := NewCortexAdapter(s)
	ctx := context.Background()
	now := time.Now()

	it := cortex.NewItem("remember the launch date", 8, now)
	it.Layer = cortex.LayerShortTerm
	require.NoError(t, adapter.SaveItem(ctx, it))

	items, err := adapter.ListByLayer(ctx, cortex.LayerShortTerm)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, it.ID, items[0].ID)
}

func TestCortexAdapterRecallCandidatesFiltersByToken(t *testing.T) {
	s := newTestStore(t)
	adapter := NewCortexAdapter(s)
	ctx := context.Background()
	now := time.Now()

	match := cortex.NewItem("the launch date is friday", 7, now)
	match.Layer = cortex.LayerLongTerm
	other := cortex.NewItem("unrelated content", 7, now)
	other.Layer = cortex.LayerLongTerm
	require.NoError(t, adapter.SaveItem(ctx, match))
	require.NoError(t, adapter.SaveItem(ctx, other))

	hits, err := adapter.RecallCandidates(ctx, cortex.LayerLongTerm, []string{"launch"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, match.ID, hits[0].ID)
}

func TestCortexAdapterUpdateAccess(t *testing.T) {
	s := newTestStore(t)
	adapter := NewCortexAdapter(s)
	ctx := context.Background()
	now := time.Now()

	it := cortex.NewItem("content", 7, now)
	it.Layer = cortex.LayerShortTerm
	require.NoError(t, adapter.SaveItem(ctx, it))
	require.NoError(t, adapter.UpdateAccess(ctx, it.ID, now.Add(time.Hour), 3))

	items, err := adapter.ListByLayer(ctx, cortex.LayerShortTerm)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].AccessCount)
}
