package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite3", ":memory:", DialectSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreConversationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	id, err := s.StoreConversation(ctx, "what's the weather", "it's sunny", 6, now)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	turns, err := s.GetConversationContext(ctx, 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, "what's the weather", turns[0].UserText)
}

func TestStoreKnowledgeUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	entry := KnowledgeEntry{Category: "preferences", Key: "favorite_color", Value: "blue", UpdatedAt: now}
	require.NoError(t, s.StoreKnowledge(ctx, entry))

	entry.Value = "green"
	entry.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.StoreKnowledge(ctx, entry))

	found, err := s.RecallKnowledge(ctx, "preferences", "favorite_color")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "green", found[0].Value)
}

func TestStoreKnowledgeUpsertBumpsImportanceMonotonically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.StoreKnowledge(ctx, KnowledgeEntry{
		Category: "facts", Key: "k", Value: "first", Importance: 8, Confidence: 0.9, UpdatedAt: now,
	}))

	require.NoError(t, s.StoreKnowledge(ctx, KnowledgeEntry{
		Category: "facts", Key: "k", Value: "second", Importance: 2, Confidence: 0.3, UpdatedAt: now.Add(time.Minute),
	}))

	found, err := s.RecallKnowledge(ctx, "facts", "k")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "second", found[0].Value)
	require.Equal(t, 8.0, found[0].Importance)
	require.Equal(t, 0.9, found[0].Confidence)
}

func TestStoreKnowledgeUpsertAllowsExplicitDowngrade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.StoreKnowledge(ctx, KnowledgeEntry{
		Category: "facts", Key: "k", Value: "first", Importance: 8, Confidence: 0.9, UpdatedAt: now,
	}))

	require.NoError(t, s.StoreKnowledge(ctx, KnowledgeEntry{
		Category: "facts", Key: "k", Value: "corrected", Importance: 2, Confidence: 0.3,
		UpdatedAt: now.Add(time.Minute), AllowDowngrade: true,
	}))

	found, err := s.RecallKnowledge(ctx, "facts", "k")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, 2.0, found[0].Importance)
	require.Equal(t, 0.3, found[0].Confidence)
}

func TestSearchKnowledgeRanksByTokenOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.StoreKnowledge(ctx, KnowledgeEntry{Category: "facts", Key: "a", Value: "the sky is blue", UpdatedAt: now}))
	require.NoError(t, s.StoreKnowledge(ctx, KnowledgeEntry{Category: "facts", Key: "b", Value: "grass is green", UpdatedAt: now}))

	results, err := s.SearchKnowledge(ctx, "blue sky", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "the sky is blue", results[0].Value)
}

func TestGetMemoryStatsCountsRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := s.StoreConversation(ctx, "hi", "hello", 5, now)
	require.NoError(t, err)
	require.NoError(t, s.StoreKnowledge(ctx, KnowledgeEntry{Category: "c", Key: "k", Value: "v", UpdatedAt: now}))
	require.NoError(t, s.RecordPattern(ctx, "greeting", "{}", true, now))
	require.NoError(t, s.TrackSkillUse(ctx, "summarize", true, "", now))

	stats, err := s.GetMemoryStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Conversations)
	require.Equal(t, 1, stats.Knowledge)
	require.Equal(t, 1, stats.Patterns)
	require.Equal(t, 1, stats.Skills)
}

func TestConsolidateMemoryIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ConsolidateMemory(ctx, time.Now()))
	require.NoError(t, s.ConsolidateMemory(ctx, time.Now()))
}
