package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ember-run/ember/internal/cortex"
)

// cortexCategory is the fixed knowledge-table category CORTEX's durable
// layers are stored under.
const cortexCategory = "cortex_item"

// CortexAdapter implements cortex.DurableStore on top of the knowledge
// table, reusing its (category, key) row shape rather than a dedicated
// schema.
type CortexAdapter struct {
	store *Store
}

// NewCortexAdapter wraps store for use as CORTEX's persistent-layer backend.
func NewCortexAdapter(store *Store) *CortexAdapter {
	return &CortexAdapter{store: store}
}

func (a *CortexAdapter) SaveItem(ctx context.Context, it *cortex.Item) error {
	_, err := a.store.db.ExecContext(ctx, a.store.upsertCortexItemQuery(),
		it.ID, string(it.Layer), it.Content, it.Importance, it.AccessCount, it.LastAccessed, it.PromotedAt,
		string(it.Layer), it.Content, it.Importance, it.AccessCount, it.LastAccessed)
	if err != nil {
		return fmt.Errorf("store: save cortex item: %w", err)
	}
	return nil
}

func (s *Store) upsertCortexItemQuery() string {
	switch s.dialect {
	case DialectPostgres:
		return `INSERT INTO knowledge (category, key_name, layer, value, importance, access_count, last_accessed, updated_at)
			VALUES ('` + cortexCategory + `', $1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (category, key_name) DO UPDATE SET
				layer=$8, value=$9, importance=$10, access_count=$11, last_accessed=$12`
	default:
		return `INSERT INTO knowledge (category, key_name, layer, value, importance, access_count, last_accessed, updated_at)
			VALUES ('` + cortexCategory + `', ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (category, key_name) DO UPDATE SET
				layer=?, value=?, importance=?, access_count=?, last_accessed=?`
	}
}

func (a *CortexAdapter) RecallCandidates(ctx context.Context, layer cortex.Layer, tokens []string) ([]*cortex.Item, error) {
	items, err := a.ListByLayer(ctx, layer)
	if err != nil {
		return nil, err
	}
	var out []*cortex.Item
	for _, it := range items {
		for _, t := range tokens {
			if strings.Contains(strings.ToLower(it.Content), t) {
				out = append(out, it)
				break
			}
		}
	}
	return out, nil
}

func (a *CortexAdapter) UpdateAccess(ctx context.Context, id string, lastAccessed time.Time, accessCount int) error {
	_, err := a.store.db.ExecContext(ctx,
		`UPDATE knowledge SET access_count=?, last_accessed=? WHERE category=? AND key_name=?`,
		accessCount, lastAccessed, cortexCategory, id)
	if err != nil {
		return fmt.Errorf("store: update cortex access: %w", err)
	}
	return nil
}

func (a *CortexAdapter) ListByLayer(ctx context.Context, layer cortex.Layer) ([]*cortex.Item, error) {
	rows, err := a.store.db.QueryContext(ctx,
		`SELECT key_name, value, importance, access_count, COALESCE(last_accessed, updated_at), updated_at
		 FROM knowledge WHERE category=? AND layer=?`,
		cortexCategory, string(layer))
	if err != nil {
		return nil, fmt.Errorf("store: list cortex layer: %w", err)
	}
	defer rows.Close()

	var out []*cortex.Item
	for rows.Next() {
		it := &cortex.Item{Layer: layer}
		var lastAccessed, updatedAt sql.NullTime
		if err := rows.Scan(&it.ID, &it.Content, &it.Importance, &it.AccessCount, &lastAccessed, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: scan cortex item: %w", err)
		}
		it.LastAccessed = lastAccessed.Time
		it.PromotedAt = updatedAt.Time
		it.CreatedAt = updatedAt.Time
		out = append(out, it)
	}
	return out, rows.Err()
}

func (a *CortexAdapter) DeleteItem(ctx context.Context, id string) error {
	_, err := a.store.db.ExecContext(ctx, `DELETE FROM knowledge WHERE category=? AND key_name=?`, cortexCategory, id)
	if err != nil {
		return fmt.Errorf("store: delete cortex item: %w", err)
	}
	return nil
}

var _ cortex.DurableStore = (*CortexAdapter)(nil)
