// Package memory provides an in-process vector index for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository"
)

var (
	_ repository.VectorIndex  = (*VectorIndex)(nil)
	_ repository.VerseScanner = (*VectorIndex)(nil)
)

// VectorIndex keeps verses in memory and ranks them by cosine similarity
type VectorIndex struct {
	mu         sync.RWMutex
	dimensions int
	docs       map[string]models.IndexedVerse
}

// NewVectorIndex creates an empty index. Vectors whose length differs from
// dimensions are rejected; zero fixes the dimension at the first write.
func NewVectorIndex(dimensions int) *VectorIndex {
	return &VectorIndex{
		dimensions: dimensions,
		docs:       make(map[string]models.IndexedVerse),
	}
}

// UpsertVerses stores docs by DocID, replacing earlier versions
func (vi *VectorIndex) UpsertVerses(_ context.Context, docs []models.IndexedVerse) ([]models.FailedDocument, error) {
	vi.mu.Lock()
	defer vi.mu.Unlock()

	var failed []models.FailedDocument
	for _, doc := range docs {
		if vi.dimensions == 0 && len(doc.Embedding) > 0 {
			vi.dimensions = len(doc.Embedding)
		}
		if len(doc.Embedding) != vi.dimensions {
			failed = append(failed, models.FailedDocument{
				DocID: doc.DocID,
				Cause: &models.IndexWriteError{
					DocID: doc.DocID,
					Err:   fmt.Errorf("embedding has %d dims, index expects %d", len(doc.Embedding), vi.dimensions),
				},
			})
			continue
		}
		stored := doc
		stored.Embedding = append([]float32(nil), doc.Embedding...)
		vi.docs[doc.DocID] = stored
	}
	return failed, nil
}

// SearchVersesByEmbedding performs a k-nearest neighbor search
func (vi *VectorIndex) SearchVersesByEmbedding(_ context.Context, embedding []float32, topK int) ([]models.VerseSource, error) {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	if vi.dimensions > 0 && len(embedding) != vi.dimensions {
		return nil, fmt.Errorf("query has %d dims, index expects %d", len(embedding), vi.dimensions)
	}

	results := make([]models.VerseSource, 0, len(vi.docs))
	for _, doc := range vi.docs {
		src := doc.VerseSource
		src.Score = cosineSimilarity(embedding, doc.Embedding)
		results = append(results, src)
	}

	// Sort by similarity (highest first), doc id breaks ties
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Len returns the number of stored verses
func (vi *VectorIndex) Len() int {
	vi.mu.RLock()
	defer vi.mu.RUnlock()
	return len(vi.docs)
}

// IDs returns the stored doc ids in sorted order
func (vi *VectorIndex) IDs() []string {
	vi.mu.RLock()
	defer vi.mu.RUnlock()
	ids := make([]string, 0, len(vi.docs))
	for id := range vi.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ScanVerses calls fn for every stored verse in doc id order
func (vi *VectorIndex) ScanVerses(ctx context.Context, fn func(models.IndexedVerse) error) error {
	vi.mu.RLock()
	docs := make([]models.IndexedVerse, 0, len(vi.docs))
	for _, doc := range vi.docs {
		docs = append(docs, doc)
	}
	vi.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].DocID < docs[j].DocID })
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}
