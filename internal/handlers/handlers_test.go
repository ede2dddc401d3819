package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository/kv"
	"github.com/verse-search-api/internal/repository/memory"
	"github.com/verse-search-api/internal/services"
	"github.com/verse-search-api/pkg/schema/db"
)

type fakeQueryEmbedder struct {
	err error
}

func (f *fakeQueryEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func newSearchServer(t *testing.T, embedErr error) *echo.Echo {
	t.Helper()
	index := memory.NewVectorIndex(2)
	_, err := index.UpsertVerses(context.Background(), []models.IndexedVerse{
		{VerseSource: models.VerseSource{DocID: "BG_1_1", TextID: "BG", Chapter: 1, Verse: 1, TranslationText: "On the field of dharma"}, Embedding: []float32{1, 0}},
		{VerseSource: models.VerseSource{DocID: "BG_2_47", TextID: "BG", Chapter: 2, Verse: 47, TranslationText: "right to action"}, Embedding: []float32{0.6, 0.8}},
		{VerseSource: models.VerseSource{DocID: "BG_9_22", TextID: "BG", Chapter: 9, Verse: 22, TranslationText: "those who worship"}, Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)

	e := echo.New()
	retriever := services.NewRetriever(index, &fakeQueryEmbedder{err: embedErr}, 2)
	NewSearchHandler(retriever, 5).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSemanticSearch_Post(t *testing.T) {
	e := newSearchServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"field of dharma","k":1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SemanticSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "field of dharma", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "BG_1_1", resp.Results[0].DocID)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-6)
}

func TestSemanticSearch_GetUsesDefaultKAndClamp(t *testing.T) {
	e := newSearchServer(t, nil)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=dharma", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SemanticSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// default k of 5 is clamped to the max of 2
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "BG_1_1", resp.Results[0].DocID)
	assert.Equal(t, "BG_2_47", resp.Results[1].DocID)
}

func TestSemanticSearch_EmptyQueryIsBadRequest(t *testing.T) {
	e := newSearchServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"  "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := serve(e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid query")
}

func TestSemanticSearch_NegativeKIsBadRequest(t *testing.T) {
	e := newSearchServer(t, nil)
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=dharma&k=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSemanticSearch_BackendFailureIsInternalError(t *testing.T) {
	e := newSearchServer(t, errors.New("embedding service unreachable"))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=dharma", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "unreachable")
}

func newVerseServer(t *testing.T) *echo.Echo {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.EnsureVerseRows(ctx, conn))

	store := kv.NewVerseRepository(conn, 10)
	_, err = services.NewVerseLoader(store, 10, zerolog.Nop()).Load(ctx,
		&models.CanonicalText{TextID: "BG", Verses: []models.CanonicalVerse{{Chapter: 1, Verse: 1, Transliteration: "dharma-kshetre"}}},
		&models.TranslationText{TextID: "BG", Language: "en", Translator: "Swami", Verses: []models.TranslationVerse{{Chapter: 1, Verse: 1, TranslationText: "On the field of dharma"}}},
	)
	require.NoError(t, err)

	e := echo.New()
	g := e.Group("/api/v1")
	NewVerseHandler(services.NewVerseService(store)).RegisterRoutes(g)
	NewHealthHandler(conn).RegisterRoutes(g)
	return e
}

func TestGetVerse(t *testing.T) {
	e := newVerseServer(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/verses/BG_1_1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail models.VerseDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "BG_1_1", detail.ID)
	require.NotNil(t, detail.Canonical)
	assert.Equal(t, "dharma-kshetre", detail.Canonical.Transliteration)
	require.Len(t, detail.Translations, 1)
	assert.Equal(t, "en", detail.Translations[0].Language)
}

func TestGetVerse_NotFound(t *testing.T) {
	e := newVerseServer(t)
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/verses/BG_18_99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newVerseServer(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/health/database", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"sqlite"`)
}

func TestDatabaseHealth_NotConfigured(t *testing.T) {
	e := echo.New()
	NewHealthHandler(nil).RegisterRoutes(e.Group(""))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/health/database", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
