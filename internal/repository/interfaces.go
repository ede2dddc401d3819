package repository

import (
	"context"

	"github.com/verse-search-api/internal/models"
)

// VectorIndex defines the vector-searchable verse index
type VectorIndex interface {
	// UpsertVerses writes docs keyed by DocID, replacing existing entries.
	// Documents the backend rejects are returned as FailedDocuments carrying an
	// *models.IndexWriteError. A non-nil error means the batch as a whole did
	// not reach the index and is always an *models.IndexTransportError.
	UpsertVerses(ctx context.Context, docs []models.IndexedVerse) ([]models.FailedDocument, error)

	// SearchVersesByEmbedding returns up to topK verses nearest to embedding,
	// most similar first
	SearchVersesByEmbedding(ctx context.Context, embedding []float32, topK int) ([]models.VerseSource, error)
}

// VerseStore defines the key-value rows for exact lookup by verse id
type VerseStore interface {
	// PutVerseRecords upserts rows keyed by (PK, SK)
	PutVerseRecords(ctx context.Context, records []models.VerseRecord) error

	// GetVerseRecords returns every row stored under pk
	GetVerseRecords(ctx context.Context, pk string) ([]models.VerseRecord, error)
}

// SourceStore keeps the stored fields of indexed verses for backends that only
// hold vectors
type SourceStore interface {
	PutSources(ctx context.Context, sources []models.VerseSource) error
	GetSources(ctx context.Context, docIDs []string) (map[string]models.VerseSource, error)
}

// VerseScanner streams every stored verse with its embedding
type VerseScanner interface {
	ScanVerses(ctx context.Context, fn func(models.IndexedVerse) error) error
}
