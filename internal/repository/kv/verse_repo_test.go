package kv

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/pkg/schema/db"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.EnsureVerseRows(ctx, conn))
	return conn
}

func TestVerseRepository_PutAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewVerseRepository(newTestDB(t), 2)

	records := []models.VerseRecord{
		{PK: "BG_1_1", SK: "T_en_Swami", TextID: "BG", Chapter: 1, Verse: 1, Language: "en", Translator: "Swami", TranslationText: "On the field of dharma"},
		{PK: "BG_1_1", SK: models.CanonicalSortKey, TextID: "BG", Chapter: 1, Verse: 1, ScriptDevanagari: "धर्मक्षेत्रे", Transliteration: "dharma-kshetre"},
		{PK: "BG_1_2", SK: models.CanonicalSortKey, TextID: "BG", Chapter: 1, Verse: 2, Transliteration: "sanjaya uvaca"},
	}
	require.NoError(t, repo.PutVerseRecords(ctx, records))

	got, err := repo.GetVerseRecords(ctx, "BG_1_1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsCanonical())
	assert.Equal(t, "dharma-kshetre", got[0].Transliteration)
	assert.Equal(t, "On the field of dharma", got[1].TranslationText)

	missing, err := repo.GetVerseRecords(ctx, "BG_9_9")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestVerseRepository_PutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewVerseRepository(conn, 100)

	rec := models.VerseRecord{PK: "BG_1_1", SK: models.CanonicalSortKey, TextID: "BG", Chapter: 1, Verse: 1, Transliteration: "old"}
	require.NoError(t, repo.PutVerseRecords(ctx, []models.VerseRecord{rec}))
	rec.Transliteration = "new"
	require.NoError(t, repo.PutVerseRecords(ctx, []models.VerseRecord{rec}))

	var count int
	require.NoError(t, conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM verse_rows`))
	assert.Equal(t, 1, count)

	got, err := repo.GetVerseRecords(ctx, "BG_1_1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Transliteration)
}

func TestVerseRepository_Sources(t *testing.T) {
	ctx := context.Background()
	repo := NewVerseRepository(newTestDB(t), 100)

	require.NoError(t, repo.PutVerseRecords(ctx, []models.VerseRecord{
		{PK: "BG_1_1", SK: models.CanonicalSortKey, TextID: "BG", Chapter: 1, Verse: 1},
	}))
	require.NoError(t, repo.PutSources(ctx, []models.VerseSource{
		{DocID: "BG_1_1", TextID: "BG", Chapter: 1, Verse: 1, Transliteration: "dharma", TranslationText: "field"},
		{DocID: "BG_1_2", TextID: "BG", Chapter: 1, Verse: 2},
	}))

	sources, err := repo.GetSources(ctx, []string{"BG_1_1", "BG_1_2", "BG_7_7"})
	require.NoError(t, err)
	assert.Len(t, sources, 2)
	assert.Equal(t, "field", sources["BG_1_1"].TranslationText)

	// source rows stay out of verse lookups
	rows, err := repo.GetVerseRecords(ctx, "BG_1_1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	empty, err := repo.GetSources(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
