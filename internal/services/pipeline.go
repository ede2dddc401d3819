package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verse-search-api/internal/merger"
	"github.com/verse-search-api/internal/models"
)

// RunOptions selects which stores a Pipeline run writes
type RunOptions struct {
	SkipKeyValue bool
	SkipIndex    bool
}

// RunSummary reports the outcome of one ingestion run
type RunSummary struct {
	RunID              string                  `json:"runId"`
	VersesLoaded       int                     `json:"versesLoaded"`
	TranslationsLoaded int                     `json:"translationsLoaded"`
	Indexed            int                     `json:"indexed"`
	Failed             []models.FailedDocument `json:"failed"`
	// Skipped counts malformed canonical verses
	Skipped int `json:"skipped"`
	// SkippedTranslations counts malformed translation records, known only
	// when the key-value store is written
	SkippedTranslations int `json:"skippedTranslations"`
}

// Pipeline runs the dual write: key-value rows first, then the merged and
// embedded documents into the vector index
type Pipeline struct {
	loader  *VerseLoader
	merger  *merger.Merger
	indexer *BulkIndexer
	logger  zerolog.Logger
}

// NewPipeline creates a pipeline. loader or indexer may be nil when the
// corresponding store is not configured.
func NewPipeline(loader *VerseLoader, m *merger.Merger, indexer *BulkIndexer, logger zerolog.Logger) *Pipeline {
	if m == nil {
		m = merger.New()
	}
	return &Pipeline{loader: loader, merger: m, indexer: indexer, logger: logger}
}

// Run ingests one canonical text with its translations. Per-document failures
// end up in the summary; load errors, transport errors and cancellation are
// returned together with the partial summary.
func (p *Pipeline) Run(ctx context.Context, canonical *models.CanonicalText, translations []*models.TranslationText, opts RunOptions) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString(), Failed: []models.FailedDocument{}}
	logger := p.logger.With().Str("run_id", summary.RunID).Str("text_id", canonical.ID()).Logger()
	logger.Info().Int("verses", len(canonical.Verses)).Int("translations", len(translations)).Msg("starting ingestion")

	if !opts.SkipKeyValue && p.loader != nil {
		loaded, err := p.loader.Load(ctx, canonical, translations...)
		summary.VersesLoaded = loaded.Canonical
		summary.TranslationsLoaded = loaded.Translations
		summary.Skipped = len(loaded.SkippedCanonical)
		summary.SkippedTranslations = len(loaded.SkippedTranslations)
		if err != nil {
			return summary, fmt.Errorf("load key-value rows: %w", err)
		}
		logger.Info().Int("canonical", loaded.Canonical).Int("translations", loaded.Translations).Msg("key-value load complete")
	}

	if !opts.SkipIndex && p.indexer != nil {
		skipped := 0
		m := p.merger.OnSkip(func(e *models.MalformedInputError) {
			skipped++
			logger.Warn().Err(e).Msg("skipping canonical verse")
		})
		result, err := p.indexer.IndexAll(ctx, m.Merge(canonical, translations...))
		summary.Indexed = result.Succeeded
		summary.Failed = append(summary.Failed, result.Failed...)
		summary.Skipped = skipped
		if err != nil {
			logger.Error().Err(err).Int("indexed", result.Succeeded).Msg("indexing aborted")
			return summary, fmt.Errorf("index documents: %w", err)
		}
		logger.Info().Int("indexed", result.Succeeded).Int("failed", len(result.Failed)).Msg("indexing complete")
	}

	return summary, nil
}
