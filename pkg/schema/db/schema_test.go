package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("verses"))
	assert.True(t, ValidIdentifier("bg_verses_v2"))
	assert.False(t, ValidIdentifier("verses; DROP TABLE x"))
	assert.False(t, ValidIdentifier("Verses"))
	assert.False(t, ValidIdentifier(""))
}

func TestEnsureVerseRows_SQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, EnsureVerseRows(ctx, conn))
	// idempotent
	require.NoError(t, EnsureVerseRows(ctx, conn))

	var count int
	require.NoError(t, conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM verse_rows`))
	assert.Zero(t, count)
}

func TestEnsureVectorIndex_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, EnsureVectorIndex(ctx, nil, "bad-name", 3))
	assert.Error(t, EnsureVectorIndex(ctx, nil, "verses", 0))
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "")
	assert.Error(t, err)
}
