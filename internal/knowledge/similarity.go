package knowledge

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
)

// RelatedTopicsRanker ranks a provider's raw "related topics" list by
// embedding similarity to the original query, using an in-process
// chromem-go collection instead of returning the upstream's raw order.
// The collection is rebuilt per query rather than held as durable storage.
type RelatedTopicsRanker struct {
	db            *chromem.DB
	embeddingFunc chromem.EmbeddingFunc
}

// NewRelatedTopicsRanker builds an in-memory ranker. A nil embed func
// falls back to a deterministic hash-based embedding so ranking works
// offline without a network-backed embedding model.
func NewRelatedTopicsRanker(embed chromem.EmbeddingFunc) *RelatedTopicsRanker {
	if embed == nil {
		embed = hashEmbedding
	}
	return &RelatedTopicsRanker{db: chromem.NewDB(), embeddingFunc: embed}
}

// Rank reorders candidates by similarity to query, returning at most topK.
// Each call uses a fresh throwaway collection since the candidate set is
// different per request.
func (r *RelatedTopicsRanker) Rank(ctx context.Context, query string, candidates []string, topK int) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	collection, err := r.db.GetOrCreateCollection(fmt.Sprintf("related-%p", candidates), nil, r.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("knowledge: create similarity collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(candidates))
	for i, c := range candidates {
		docs = append(docs, chromem.Document{ID: fmt.Sprintf("%d", i), Content: c})
	}
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("knowledge: index related topics: %w", err)
	}

	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}
	results, err := collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge: query related topics: %w", err)
	}

	out := make([]string, 0, len(results))
	for _, res := range results {
		out = append(out, res.Content)
	}
	return out, nil
}

// hashEmbedding produces a small deterministic bag-of-characters vector so
// similarity ranking works without any external embedding call. It is not
// semantically rich, but it is stable and cheap, adequate for reordering a
// handful of short related-topic strings by lexical overlap with the query.
func hashEmbedding(ctx context.Context, text string) ([]float32, error) {
	const dims = 64
	vec := make([]float32, dims)
	for i, r := range text {
		vec[(int(r)+i)%dims]++
	}
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1) / sqrtf32(norm)
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func sqrtf32(x float32) float32 {
	// Newton's method, a handful of iterations is plenty for unit-norming
	// a small hashed vector.
	z := x
	for i := 0; i < 8; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}
