package db

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
)

// VerseRowsTable holds the key-value rows: one canonical row and N translation rows per verse
const VerseRowsTable = "verse_rows"

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdentifier reports whether name can be interpolated as an SQL table name
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// EnsureVerseRows creates the key-value table. The DDL is portable between
// PostgreSQL and SQLite.
func EnsureVerseRows(ctx context.Context, conn *sqlx.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS verse_rows (
			pk                TEXT NOT NULL,
			sk                TEXT NOT NULL,
			text_id           TEXT NOT NULL,
			chapter           INTEGER NOT NULL,
			verse             INTEGER NOT NULL,
			script_devanagari TEXT NOT NULL DEFAULT '',
			transliteration   TEXT NOT NULL DEFAULT '',
			language          TEXT NOT NULL DEFAULT '',
			translator        TEXT NOT NULL DEFAULT '',
			translation_text  TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (pk, sk)
		)`)
	if err != nil {
		return fmt.Errorf("create verse_rows: %w", err)
	}
	return nil
}

// EnsureVectorIndex creates the pgvector table for the index and its HNSW
// cosine index. The distance metric is fixed here, at creation time.
func EnsureVectorIndex(ctx context.Context, conn *sqlx.DB, table string, dimensions int) error {
	if !ValidIdentifier(table) {
		return fmt.Errorf("invalid index name %q", table)
	}
	if dimensions <= 0 {
		return fmt.Errorf("index dimensions must be positive, got %d", dimensions)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				doc_id           TEXT PRIMARY KEY,
				text_id          TEXT NOT NULL,
				chapter          INTEGER NOT NULL,
				verse            INTEGER NOT NULL,
				transliteration  TEXT NOT NULL DEFAULT '',
				translation_text TEXT NOT NULL DEFAULT '',
				embedding        vector(%d) NOT NULL,
				updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, table, table),
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create vector index %s: %w", table, err)
		}
	}
	return nil
}
