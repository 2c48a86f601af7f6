package governance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ember-run/ember/internal/store"
)

// communicationProfileCategory is the knowledge category under which
// per-user communication profiles are persisted in the permanent store.
const communicationProfileCategory = "communication_profiles"

// StoreProfileStore is a ProfileStore backed by the permanent store's
// category/key-addressed knowledge table, giving process_input read-through
// persistence across restarts instead of the in-memory-only fallback.
type StoreProfileStore struct {
	s *store.Store
}

// NewStoreProfileStore wraps s as a ProfileStore. s must not be nil.
func NewStoreProfileStore(s *store.Store) *StoreProfileStore {
	return &StoreProfileStore{s: s}
}

func (ps *StoreProfileStore) LastSeen(userID string) (*Profile, bool) {
	entries, err := ps.s.RecallKnowledge(context.Background(), communicationProfileCategory, userID)
	if err != nil || len(entries) == 0 {
		return nil, false
	}

	var p Profile
	if err := json.Unmarshal([]byte(entries[0].Value), &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (ps *StoreProfileStore) Save(userID string, p Profile) {
	encoded, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = ps.s.StoreKnowledge(context.Background(), store.KnowledgeEntry{
		Category:       communicationProfileCategory,
		Key:            userID,
		Value:          string(encoded),
		Importance:     p.Confidence * 10,
		Confidence:     p.Confidence,
		Source:         "governance.profile",
		UpdatedAt:      time.Now(),
		AllowDowngrade: true,
	})
}
