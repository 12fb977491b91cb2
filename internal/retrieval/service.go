package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Candidate is one nearest-neighbor hit from the vector index.
type Candidate struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Result is what a query returns: the chunk payload, without the raw
// similarity or rerank score.
type Result struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]Candidate, error)
}

type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]float64, error)
}

// Service answers queries: embed, nearest-neighbor search, rerank,
// re-sort. Stateless per request; any stage failure fails the whole
// request, there is no degraded search-without-rerank mode.
type Service struct {
	embedder Embedder
	store    VectorSearcher
	reranker Reranker
	topK     int
	logger   *QueryLogger
}

func NewService(e Embedder, s VectorSearcher, r Reranker, topK int, l *QueryLogger) *Service {
	if topK <= 0 {
		topK = 10
	}
	return &Service{embedder: e, store: s, reranker: r, topK: topK, logger: l}
}

// Query runs the full retrieval pipeline for one query text. Results
// come back ordered by rerank score descending; candidates with equal
// scores keep their vector-search order. Reranking only reorders the
// candidate set, it never expands it.
func (s *Service) Query(ctx context.Context, query string) ([]Result, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := s.store.Search(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if len(candidates) > 0 {
		docs := make([]string, len(candidates))
		for i, c := range candidates {
			docs[i] = c.Text
		}

		scores, err := s.reranker.Rerank(ctx, query, docs)
		if err != nil {
			return nil, fmt.Errorf("reranking: %w", err)
		}

		order := make([]int, len(candidates))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return scores[order[a]] > scores[order[b]]
		})

		reranked := make([]Candidate, len(candidates))
		for i, idx := range order {
			reranked[i] = candidates[idx]
		}
		candidates = reranked
	}

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{Text: c.Text, Metadata: c.Metadata}
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      query,
			NumResults: len(results),
			Duration:   time.Since(start),
		})
	}
	return results, nil
}
