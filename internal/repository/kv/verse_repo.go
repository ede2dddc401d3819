package kv

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository"
)

// indexSourceSortKey marks rows holding the stored fields of an indexed verse
const indexSourceSortKey = "I"

var (
	_ repository.VerseStore  = (*VerseRepository)(nil)
	_ repository.SourceStore = (*VerseRepository)(nil)
)

// VerseRepository implements repository.VerseStore over the verse_rows table.
// It works with both PostgreSQL and SQLite connections.
type VerseRepository struct {
	db        *sqlx.DB
	batchSize int
}

// NewVerseRepository creates a key-value verse repository. Puts are committed
// in transactions of at most batchSize rows.
func NewVerseRepository(db *sqlx.DB, batchSize int) *VerseRepository {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &VerseRepository{db: db, batchSize: batchSize}
}

const upsertRecordSQL = `
	INSERT INTO verse_rows (pk, sk, text_id, chapter, verse, script_devanagari, transliteration, language, translator, translation_text)
	VALUES (:pk, :sk, :text_id, :chapter, :verse, :script_devanagari, :transliteration, :language, :translator, :translation_text)
	ON CONFLICT (pk, sk) DO UPDATE SET
		text_id = excluded.text_id,
		chapter = excluded.chapter,
		verse = excluded.verse,
		script_devanagari = excluded.script_devanagari,
		transliteration = excluded.transliteration,
		language = excluded.language,
		translator = excluded.translator,
		translation_text = excluded.translation_text`

// PutVerseRecords upserts rows keyed by (pk, sk)
func (r *VerseRepository) PutVerseRecords(ctx context.Context, records []models.VerseRecord) error {
	for start := 0; start < len(records); start += r.batchSize {
		end := min(start+r.batchSize, len(records))
		if err := r.putBatch(ctx, records[start:end]); err != nil {
			return fmt.Errorf("put verse rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (r *VerseRepository) putBatch(ctx context.Context, records []models.VerseRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertRecordSQL)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", rec.PK, rec.SK, err)
		}
	}
	return tx.Commit()
}

// GetVerseRecords returns every row stored under pk, canonical row first
func (r *VerseRepository) GetVerseRecords(ctx context.Context, pk string) ([]models.VerseRecord, error) {
	var records []models.VerseRecord
	err := r.db.SelectContext(ctx, &records, r.db.Rebind(`
		SELECT pk, sk, text_id, chapter, verse, script_devanagari, transliteration, language, translator, translation_text
		FROM verse_rows
		WHERE pk = ? AND sk <> ?
		ORDER BY CASE WHEN sk = 'C' THEN 0 ELSE 1 END, sk
	`), pk, indexSourceSortKey)
	if err != nil {
		return nil, fmt.Errorf("select verse rows %s: %w", pk, err)
	}
	return records, nil
}

// PutSources stores the indexed fields of verses under sort key "I"
func (r *VerseRepository) PutSources(ctx context.Context, sources []models.VerseSource) error {
	records := make([]models.VerseRecord, len(sources))
	for i, s := range sources {
		records[i] = models.VerseRecord{
			PK:              s.DocID,
			SK:              indexSourceSortKey,
			TextID:          s.TextID,
			Chapter:         s.Chapter,
			Verse:           s.Verse,
			Transliteration: s.Transliteration,
			TranslationText: s.TranslationText,
		}
	}
	return r.PutVerseRecords(ctx, records)
}

// GetSources looks up indexed fields by doc id
func (r *VerseRepository) GetSources(ctx context.Context, docIDs []string) (map[string]models.VerseSource, error) {
	result := make(map[string]models.VerseSource, len(docIDs))
	if len(docIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT pk AS doc_id, text_id, chapter, verse, transliteration, translation_text
		FROM verse_rows
		WHERE sk = ? AND pk IN (?)
	`, indexSourceSortKey, docIDs)
	if err != nil {
		return nil, fmt.Errorf("build IN query: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.VerseSource
		if err := rows.StructScan(&s); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		result[s.DocID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return result, nil
}
