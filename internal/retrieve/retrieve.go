// internal/retrieve/retrieve.go
// Package retrieve turns a free-text query into scored corpus matches. It
// owns the query-embedding step and the relevance threshold; the vector math
// itself lives in the index package.
package retrieve

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mwiater/dossier/internal/index"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/providers"
)

// ErrUnavailable indicates retrieval could not run at all, typically because
// the embedding provider is unreachable. Callers may degrade rather than fail.
var ErrUnavailable = errors.New("retrieval unavailable")

// Retriever embeds queries and searches an index, keeping a small LRU of
// query embeddings so repeated questions skip the provider round trip.
type Retriever struct {
	embedder providers.Embedder
	topK     int
	minScore float64
	cache    *lru.Cache[string, []float64]
}

// New builds a Retriever. cacheSize <= 0 disables the embedding cache.
func New(embedder providers.Embedder, topK int, minScore float64, cacheSize int) *Retriever {
	r := &Retriever{
		embedder: embedder,
		topK:     topK,
		minScore: minScore,
	}
	if cacheSize > 0 {
		// lru.New only fails on a non-positive size, which is guarded here.
		cache, err := lru.New[string, []float64](cacheSize)
		if err == nil {
			r.cache = cache
		}
	}
	return r
}

// Retrieve returns the top-K matches for query with scores at or above the
// configured threshold, best first. An empty result is a valid outcome; an
// ErrUnavailable means the embedding step itself failed.
func (r *Retriever) Retrieve(ctx context.Context, ix *index.Index, query string) ([]index.Result, error) {
	results, err := r.search(ctx, ix, query)
	if err != nil {
		return nil, err
	}

	kept := results[:0]
	for _, result := range results {
		if result.Score >= r.minScore {
			kept = append(kept, result)
		}
	}
	logging.LogEvent("[RETRIEVE] Query matched %d of %d candidates at threshold %.2f", len(kept), len(results), r.minScore)
	return kept, nil
}

// Preview returns the raw top-K matches without threshold filtering. It
// exists so operators can see what the threshold would discard.
func (r *Retriever) Preview(ctx context.Context, ix *index.Index, query string) ([]index.Result, error) {
	return r.search(ctx, ix, query)
}

func (r *Retriever) search(ctx context.Context, ix *index.Index, query string) ([]index.Result, error) {
	vector, err := r.queryVector(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return ix.Search(vector, r.topK), nil
}

func (r *Retriever) queryVector(ctx context.Context, query string) ([]float64, error) {
	if r.cache != nil {
		if vector, ok := r.cache.Get(query); ok {
			logging.LogEvent("[RETRIEVE] Query embedding served from cache")
			return vector, nil
		}
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}

	if r.cache != nil {
		r.cache.Add(query, vectors[0])
	}
	return vectors[0], nil
}
