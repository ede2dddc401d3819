package services

import "context"

// DocumentEmbedder embeds verse text at index time
type DocumentEmbedder interface {
	EmbedVerse(ctx context.Context, text string) ([]float32, error)
}

// QueryEmbedder embeds query text at search time. It must share the vector
// space of the DocumentEmbedder used to build the index.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}
