package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository/memory"
)

type failingScanner struct{}

func (failingScanner) ScanVerses(context.Context, func(models.IndexedVerse) error) error {
	return errors.New("connection reset")
}

func TestExport_WritesDatapointsInDocIDOrder(t *testing.T) {
	ctx := context.Background()
	index := memory.NewVectorIndex(2)
	_, err := index.UpsertVerses(ctx, []models.IndexedVerse{
		{VerseSource: models.VerseSource{DocID: "BG_1_2", TextID: "BG"}, Embedding: []float32{0, 1}},
		{VerseSource: models.VerseSource{DocID: "BG_1_1", TextID: "BG"}, Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "verses.jsonl")
	count, err := NewExporter().Export(ctx, index, "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var points []Datapoint
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var dp Datapoint
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &dp))
		points = append(points, dp)
	}
	require.Len(t, points, 2)
	assert.Equal(t, "BG_1_1", points[0].ID)
	assert.Equal(t, []float32{1, 0}, points[0].Embedding)
	assert.Equal(t, []Restrict{{Namespace: "text_id", Allow: []string{"BG"}}}, points[0].Restricts)
}

func TestExport_PropagatesScanError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verses.jsonl")
	_, err := NewExporter().Export(context.Background(), failingScanner{}, "file://"+path)
	assert.ErrorContains(t, err, "connection reset")
	assert.NoFileExists(t, path)
}

func TestToDatapoint_WithoutTextID(t *testing.T) {
	dp := toDatapoint(models.IndexedVerse{VerseSource: models.VerseSource{DocID: "x"}, Embedding: []float32{1}})
	assert.Nil(t, dp.Restricts)
}
