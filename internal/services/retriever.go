package services

import (
	"context"
	"strings"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository"
)

// Retriever handles semantic verse search. It holds no mutable state and is
// safe for concurrent use.
type Retriever struct {
	index    repository.VectorIndex
	embedder QueryEmbedder
	maxK     int
}

// NewRetriever creates a new retriever. k is capped at maxK when maxK > 0.
func NewRetriever(index repository.VectorIndex, embedder QueryEmbedder, maxK int) *Retriever {
	return &Retriever{
		index:    index,
		embedder: embedder,
		maxK:     maxK,
	}
}

// Search embeds a query and returns at most k verses, most similar first.
// Invalid input fails with *models.InvalidQueryError before any remote call;
// every other failure is a single *models.RetrievalServiceError.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]models.VerseSource, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &models.InvalidQueryError{Reason: "query text is empty"}
	}
	if k <= 0 {
		return nil, &models.InvalidQueryError{Reason: "k must be positive"}
	}
	if r.maxK > 0 && k > r.maxK {
		k = r.maxK
	}

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, &models.RetrievalServiceError{Err: err}
	}

	results, err := r.index.SearchVersesByEmbedding(ctx, embedding, k)
	if err != nil {
		return nil, &models.RetrievalServiceError{Err: err}
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
