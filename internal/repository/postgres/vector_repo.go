package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository"
	"github.com/verse-search-api/pkg/schema/db"
)

var (
	_ repository.VectorIndex  = (*VectorSearchRepository)(nil)
	_ repository.VerseScanner = (*VectorSearchRepository)(nil)
)

// VectorSearchRepository implements repository.VectorIndex for PostgreSQL with pgvector.
// Similarity is cosine, matching the HNSW index built by db.EnsureVectorIndex.
type VectorSearchRepository struct {
	db         *sqlx.DB
	table      string
	dimensions int
}

// NewVectorSearchRepository creates a new PostgreSQL vector search repository
// over the named index table
func NewVectorSearchRepository(conn *sqlx.DB, table string, dimensions int) (*VectorSearchRepository, error) {
	if !db.ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid index name %q", table)
	}
	return &VectorSearchRepository{db: conn, table: table, dimensions: dimensions}, nil
}

// UpsertVerses writes a batch in one transaction. Each row runs under its own
// savepoint so a rejected row does not poison the rest of the batch.
func (r *VectorSearchRepository) UpsertVerses(ctx context.Context, docs []models.IndexedVerse) ([]models.FailedDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &models.IndexTransportError{Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (doc_id, text_id, chapter, verse, transliteration, translation_text, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (doc_id) DO UPDATE SET
			text_id = EXCLUDED.text_id,
			chapter = EXCLUDED.chapter,
			verse = EXCLUDED.verse,
			transliteration = EXCLUDED.transliteration,
			translation_text = EXCLUDED.translation_text,
			embedding = EXCLUDED.embedding,
			updated_at = now()
	`, r.table)

	var failed []models.FailedDocument
	for _, doc := range docs {
		if r.dimensions > 0 && len(doc.Embedding) != r.dimensions {
			failed = append(failed, models.FailedDocument{
				DocID: doc.DocID,
				Cause: &models.IndexWriteError{
					DocID: doc.DocID,
					Err:   fmt.Errorf("embedding has %d dims, index expects %d", len(doc.Embedding), r.dimensions),
				},
			})
			continue
		}

		if _, err := tx.ExecContext(ctx, "SAVEPOINT upsert_doc"); err != nil {
			return nil, &models.IndexTransportError{Err: fmt.Errorf("savepoint: %w", err)}
		}

		_, err := tx.ExecContext(ctx, query,
			doc.DocID, doc.TextID, doc.Chapter, doc.Verse,
			doc.Transliteration, doc.TranslationText, pgvector.NewVector(doc.Embedding))
		if err != nil {
			if !isRowError(err) {
				return nil, &models.IndexTransportError{Err: fmt.Errorf("upsert %s: %w", doc.DocID, err)}
			}
			failed = append(failed, models.FailedDocument{
				DocID: doc.DocID,
				Cause: &models.IndexWriteError{DocID: doc.DocID, Err: err},
			})
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT upsert_doc"); err != nil {
				return nil, &models.IndexTransportError{Err: fmt.Errorf("rollback savepoint: %w", err)}
			}
			continue
		}

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT upsert_doc"); err != nil {
			return nil, &models.IndexTransportError{Err: fmt.Errorf("release savepoint: %w", err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &models.IndexTransportError{Err: fmt.Errorf("commit: %w", err)}
	}
	return failed, nil
}

// isRowError reports whether the server rejected the row itself (constraint,
// data or type errors) as opposed to the connection or session failing
func isRowError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code.Class() {
	case "22", "23", "42":
		// data exception, integrity constraint violation, syntax/type error
		return true
	}
	return false
}

// SearchVersesByEmbedding performs vector similarity search on verses using pgvector
func (r *VectorSearchRepository) SearchVersesByEmbedding(ctx context.Context, embedding []float32, topK int) ([]models.VerseSource, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := r.db.QueryxContext(ctx, fmt.Sprintf(`
		SELECT doc_id, text_id, chapter, verse, transliteration, translation_text,
		       1 - (embedding <=> $1) as score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, r.table), vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search verses: %w", err)
	}
	defer rows.Close()

	var results []models.VerseSource
	for rows.Next() {
		var v models.VerseSource
		if err := rows.StructScan(&v); err != nil {
			return nil, fmt.Errorf("scan verse result: %w", err)
		}
		results = append(results, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verse results: %w", err)
	}

	if results == nil {
		results = []models.VerseSource{}
	}
	return results, nil
}

type verseRow struct {
	models.VerseSource
	Embedding pgvector.Vector `db:"embedding"`
}

// ScanVerses streams the index table in doc id order
func (r *VectorSearchRepository) ScanVerses(ctx context.Context, fn func(models.IndexedVerse) error) error {
	rows, err := r.db.QueryxContext(ctx, fmt.Sprintf(`
		SELECT doc_id, text_id, chapter, verse, transliteration, translation_text, embedding
		FROM %s
		ORDER BY doc_id
	`, r.table))
	if err != nil {
		return fmt.Errorf("scan verses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row verseRow
		if err := rows.StructScan(&row); err != nil {
			return fmt.Errorf("scan verse row: %w", err)
		}
		if err := fn(models.IndexedVerse{VerseSource: row.VerseSource, Embedding: row.Embedding.Slice()}); err != nil {
			return err
		}
	}
	return rows.Err()
}
