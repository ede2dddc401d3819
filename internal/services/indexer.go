package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository"
)

// IndexResult summarizes a bulk indexing run
type IndexResult struct {
	Succeeded int
	Failed    []models.FailedDocument
}

// Total returns the number of documents that reached a final state
func (r IndexResult) Total() int {
	return r.Succeeded + len(r.Failed)
}

// EmbedOutcome is the per-document result of the embedding stage. Exactly one
// of Verse and Failure is set.
type EmbedOutcome struct {
	Verse   *models.IndexedVerse
	Failure *models.FailedDocument
}

// BulkIndexerOptions configures a BulkIndexer
type BulkIndexerOptions struct {
	BatchSize      int           // documents per index write, default 100
	Workers        int           // concurrent embedding calls per batch, default 1
	RequestTimeout time.Duration // bound on one index write, default 200s
	Logger         zerolog.Logger
}

// BulkIndexer embeds merged documents and upserts them into a VectorIndex in
// batches. Per-document failures are collected; only an index transport
// failure stops the run.
type BulkIndexer struct {
	index    repository.VectorIndex
	embedder DocumentEmbedder
	opts     BulkIndexerOptions
}

// NewBulkIndexer creates a bulk indexer
func NewBulkIndexer(index repository.VectorIndex, embedder DocumentEmbedder, opts BulkIndexerOptions) *BulkIndexer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 200 * time.Second
	}
	return &BulkIndexer{index: index, embedder: embedder, opts: opts}
}

// IndexAll consumes docs incrementally, holding at most one batch in memory.
// Cancelling ctx stops the run between documents; batches already written stay
// in the index. The returned result covers everything processed before a
// stop, and the error is ctx.Err() or an *models.IndexTransportError.
func (b *BulkIndexer) IndexAll(ctx context.Context, docs iter.Seq[models.MergedDocument]) (IndexResult, error) {
	var (
		result  IndexResult
		pending = make([]models.MergedDocument, 0, b.opts.BatchSize)
		batchNo int
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batchNo++
		outcomes, err := b.embedBatch(ctx, pending)
		if err != nil {
			return err
		}

		ready := make([]models.IndexedVerse, 0, len(outcomes))
		for _, o := range outcomes {
			if o.Failure != nil {
				b.opts.Logger.Warn().Str("doc_id", o.Failure.DocID).Err(o.Failure.Cause).Msg("failed to embed document")
				result.Failed = append(result.Failed, *o.Failure)
				continue
			}
			ready = append(ready, *o.Verse)
		}

		failed, err := b.write(ctx, ready)
		if err != nil {
			return err
		}
		for _, f := range failed {
			b.opts.Logger.Warn().Str("doc_id", f.DocID).Err(f.Cause).Msg("index rejected document")
		}
		result.Failed = append(result.Failed, failed...)
		result.Succeeded += len(ready) - len(failed)

		b.opts.Logger.Info().
			Int("batch", batchNo).
			Int("indexed", result.Succeeded).
			Int("failed", len(result.Failed)).
			Msg("indexed batch")
		pending = pending[:0]
		return nil
	}

	for doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		pending = append(pending, doc)
		if len(pending) >= b.opts.BatchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := flush(); err != nil {
		return result, err
	}
	return result, nil
}

func (b *BulkIndexer) write(ctx context.Context, ready []models.IndexedVerse) ([]models.FailedDocument, error) {
	if len(ready) == 0 {
		return nil, nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, b.opts.RequestTimeout)
	defer cancel()

	failed, err := b.index.UpsertVerses(writeCtx, ready)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var transportErr *models.IndexTransportError
		if !errors.As(err, &transportErr) {
			err = &models.IndexTransportError{Err: err}
		}
		return nil, err
	}
	return failed, nil
}

// embedBatch embeds docs with at most Workers calls in flight. Outcomes keep
// the order of docs. It returns ctx.Err() when the run is cancelled so that
// cancelled calls are not reported as document failures.
func (b *BulkIndexer) embedBatch(ctx context.Context, docs []models.MergedDocument) ([]EmbedOutcome, error) {
	outcomes := make([]EmbedOutcome, len(docs))

	if b.opts.Workers == 1 {
		for i, doc := range docs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = b.embedOne(ctx, doc)
		}
		return outcomes, ctx.Err()
	}

	var g errgroup.Group
	g.SetLimit(b.opts.Workers)
	for i, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = b.embedOne(ctx, doc)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (b *BulkIndexer) embedOne(ctx context.Context, doc models.MergedDocument) EmbedOutcome {
	vec, err := b.embedder.EmbedVerse(ctx, doc.EmbeddingText())
	if err != nil {
		var embedErr *models.EmbeddingServiceError
		if !errors.As(err, &embedErr) {
			err = &models.EmbeddingServiceError{Attempts: 1, Err: fmt.Errorf("embed %s: %w", doc.DocID, err)}
		}
		return EmbedOutcome{Failure: &models.FailedDocument{DocID: doc.DocID, Cause: err}}
	}
	return EmbedOutcome{Verse: &models.IndexedVerse{VerseSource: doc.Source(), Embedding: vec}}
}
