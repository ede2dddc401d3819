package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verse-search-api/internal/services"
)

const canonicalJSON = `{
	"textId": "BG",
	"verses": [
		{"chapter": 1, "verse": 1, "sanskritTransliteration": "dharma-kshetre kuru-kshetre"},
		{"chapter": 1, "verse": 2, "sanskritTransliteration": "fail-me"},
		{"chapter": 1, "verse": 3, "sanskritTransliteration": "pashyaitam"},
		{"verse": 4, "sanskritTransliteration": "no chapter"},
		{"chapter": "1", "verse": 5, "sanskritTransliteration": "chapter as string"}
	]
}`

const translationJSON = `{
	"textId": "BG",
	"language": "en",
	"translator": "Swami",
	"verses": [
		{"chapter": 1, "verse": 1, "translationText": "On the field of dharma"},
		{"chapter": 1, "verse": 3, "translationText": "Behold this mighty army"},
		{"chapter": 1, "verse": "x", "translationText": "verse as string"}
	]
}`

// setupEnv points the ingest binary at a sqlite store, the memory index and a
// fake embedding service that rejects any text containing "fail-me"
func setupEnv(t *testing.T) (canonical, translation string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "fail-me") {
			http.Error(w, "bad input", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[[1, 0], [0, 1]]]`))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("KV_DRIVER", "sqlite")
	t.Setenv("KV_DSN", filepath.Join(dir, "verses.db"))
	t.Setenv("EMBEDDING_PROVIDER", "custom")
	t.Setenv("EMBEDDING_SERVICE_URL", server.URL)
	t.Setenv("EMBEDDING_DIMENSIONS", "2")
	t.Setenv("EMBEDDING_MAX_ATTEMPTS", "1")
	t.Setenv("TRANSLATION_POLICY", "first")

	canonical = filepath.Join(dir, "bg.json")
	translation = filepath.Join(dir, "bg_en.json")
	require.NoError(t, os.WriteFile(canonical, []byte(canonicalJSON), 0o644))
	require.NoError(t, os.WriteFile(translation, []byte(translationJSON), 0o644))
	return canonical, translation
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIngestRun(t *testing.T) {
	canonical, translation := setupEnv(t)

	_, err := execute("setup")
	require.NoError(t, err)

	out, err := execute("run", "--canonical", canonical, "--translation", translation)
	require.NoError(t, err)

	var summary services.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.VersesLoaded)
	assert.Equal(t, 2, summary.TranslationsLoaded)
	assert.Equal(t, 2, summary.Indexed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.SkippedTranslations)
	assert.Contains(t, out, `"docId": "BG_1_2"`)
}

func TestIngestRun_FailOnPartial(t *testing.T) {
	canonical, translation := setupEnv(t)

	_, err := execute("setup")
	require.NoError(t, err)

	_, err = execute("index", "-c", canonical, "-t", translation, "--fail-on-partial")
	assert.ErrorIs(t, err, errPartialFailure)
}

func TestIngestLoad_RequiresCanonical(t *testing.T) {
	setupEnv(t)
	_, err := execute("load")
	assert.Error(t, err)
}

func TestIngestRun_RejectsUnknownPolicy(t *testing.T) {
	canonical, _ := setupEnv(t)
	_, err := execute("index", "-c", canonical, "--policy", "random")
	assert.ErrorContains(t, err, "unknown translation policy")
}

func TestIngestExport_EmptyMemoryIndex(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "out.jsonl")

	_, err := execute("export", "-o", "file://"+path)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
