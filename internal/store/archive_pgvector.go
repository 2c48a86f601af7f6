package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ArchiveEmbeddingStore is an optional Postgres+pgvector companion to the
// permanent store offering embedding-similarity search over archive/thunk
// records. Nothing in the core constructs it: CORTEX recall
// (CortexAdapter.RecallCandidates) and thunk compression do not use it.
type ArchiveEmbeddingStore struct {
	pool *pgxpool.Pool
}

// ArchiveEntry is one embedded archive/thunk record.
type ArchiveEntry struct {
	ID        string
	Content   string
	Embedding []float32
}

// OpenArchiveEmbeddingStore connects to Postgres and ensures the archive
// embeddings table and pgvector extension exist. dims is the embedding
// model's vector width (e.g. 1536 for a typical small embedding model).
func OpenArchiveEmbeddingStore(ctx context.Context, dsn string, dims int) (*ArchiveEmbeddingStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect pgvector pool: %w", err)
	}

	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil, fmt.Errorf("store: enable pgvector extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS archive_embeddings (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, dims)
	if _, err := pool.Exec(ctx, createTable); err != nil {
		return nil, fmt.Errorf("store: create archive_embeddings table: %w", err)
	}

	return &ArchiveEmbeddingStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *ArchiveEmbeddingStore) Close() {
	s.pool.Close()
}

// Upsert stores or replaces one archive item's embedding.
func (s *ArchiveEmbeddingStore) Upsert(ctx context.Context, entry ArchiveEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO archive_embeddings (id, content, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding
	`, entry.ID, entry.Content, pgvector.NewVector(entry.Embedding))
	if err != nil {
		return fmt.Errorf("store: upsert archive embedding: %w", err)
	}
	return nil
}

// SimilaritySearch returns the limit nearest archive entries to query by
// cosine distance.
func (s *ArchiveEmbeddingStore) SimilaritySearch(ctx context.Context, query []float32, limit int) ([]ArchiveEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, content, embedding FROM archive_embeddings
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("store: similarity search: %w", err)
	}
	defer rows.Close()

	var out []ArchiveEntry
	for rows.Next() {
		var e ArchiveEntry
		var vec pgvector.Vector
		if err := rows.Scan(&e.ID, &e.Content, &vec); err != nil {
			return nil, fmt.Errorf("store: scan archive embedding row: %w", err)
		}
		e.Embedding = vec.Slice()
		out = append(out, e)
	}
	return out, rows.Err()
}
