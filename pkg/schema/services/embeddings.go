package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	"github.com/rs/zerolog"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/pkg/schema/config"
)

// EmbeddingsService turns text into a single fixed-size vector: one remote
// model call (retried with increasing backoff) followed by mean pooling.
// Index time and query time share this code path.
type EmbeddingsService struct {
	embedder    TokenEmbedder
	dimensions  int
	maxAttempts int
	minBackoff  time.Duration
	logger      zerolog.Logger
	closer      io.Closer
}

// Option configures an EmbeddingsService
type Option func(*EmbeddingsService)

// WithDimensions rejects vectors whose length differs from d. Zero disables the check.
func WithDimensions(d int) Option {
	return func(s *EmbeddingsService) { s.dimensions = d }
}

// WithRetry sets the attempt cap and the first backoff interval
func WithRetry(maxAttempts int, minBackoff time.Duration) Option {
	return func(s *EmbeddingsService) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if minBackoff > 0 {
			s.minBackoff = minBackoff
		}
	}
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(l zerolog.Logger) Option {
	return func(s *EmbeddingsService) { s.logger = l }
}

// NewEmbeddingsService wraps a TokenEmbedder
func NewEmbeddingsService(embedder TokenEmbedder, opts ...Option) *EmbeddingsService {
	s := &EmbeddingsService{
		embedder:    embedder,
		maxAttempts: 3,
		minBackoff:  time.Second,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if c, ok := embedder.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewEmbeddingsServiceFromConfig builds the backend selected by EMBEDDING_PROVIDER
func NewEmbeddingsServiceFromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*EmbeddingsService, error) {
	var embedder TokenEmbedder
	switch cfg.EmbeddingProvider {
	case "vertex":
		vertex, err := NewVertexEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vertex AI embedder: %w", err)
		}
		embedder = vertex
	default:
		embedder = NewCustomEmbedder(cfg)
	}

	return NewEmbeddingsService(embedder,
		WithDimensions(cfg.EmbeddingDimensions),
		WithRetry(cfg.EmbeddingMaxAttempts, cfg.EmbeddingBackoff),
		WithLogger(logger.With().Str("component", "embedder").Str("provider", cfg.EmbeddingProvider).Logger()),
	), nil
}

// Dimensions returns the configured vector length, or 0 when unchecked
func (s *EmbeddingsService) Dimensions() int {
	return s.dimensions
}

// Close releases the backend client, if it holds one
func (s *EmbeddingsService) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// EmbedQuery embeds a query for retrieval
func (s *EmbeddingsService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return s.embed(ctx, query, TaskTypeQuery)
}

// EmbedVerse embeds a verse as a document for retrieval
func (s *EmbeddingsService) EmbedVerse(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text, TaskTypeDocument)
}

func (s *EmbeddingsService) embed(ctx context.Context, text string, taskType TaskType) ([]float32, error) {
	tokens, attempts, err := s.callWithRetry(ctx, text, taskType)
	if err != nil {
		return nil, &models.EmbeddingServiceError{Attempts: attempts, Err: err}
	}

	vec, err := MeanPool(tokens)
	if err != nil {
		return nil, &models.EmbeddingServiceError{Attempts: attempts, Err: err}
	}
	if s.dimensions > 0 && len(vec) != s.dimensions {
		return nil, &models.EmbeddingServiceError{
			Attempts: attempts,
			Err:      fmt.Errorf("embedding has %d dims, index expects %d", len(vec), s.dimensions),
		}
	}
	return vec, nil
}

func (s *EmbeddingsService) callWithRetry(ctx context.Context, text string, taskType TaskType) ([][]float64, int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	policy := backoff.Exponential(
		backoff.WithMinInterval(s.minBackoff),
		backoff.WithMaxInterval(s.minBackoff*8),
		backoff.WithMultiplier(2),
		backoff.WithJitterFactor(0.1),
		backoff.WithMaxRetries(s.maxAttempts),
	)

	var (
		attempts int
		lastErr  error
	)
	b := policy.Start(ctx)
	for backoff.Continue(b) {
		attempts++
		tokens, err := s.embedder.EmbedTokens(ctx, text, taskType)
		if err == nil {
			return tokens, attempts, nil
		}
		lastErr = err
		if IsPermanent(err) || attempts >= s.maxAttempts {
			break
		}
		s.logger.Warn().Err(err).Int("attempt", attempts).Msg("embedding call failed, retrying")
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	if lastErr == nil {
		lastErr = errors.New("embedding retries exhausted")
	}
	return nil, attempts, lastErr
}
