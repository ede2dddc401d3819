package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verse-search-api/pkg/schema/config"
)

func newTestCustomEmbedder(url string) *CustomEmbedder {
	return NewCustomEmbedder(&config.Config{EmbeddingServiceURL: url, EmbeddingTimeout: 5 * time.Second})
}

func TestCustomEmbedder_SendsInputsAndReturnsTokens(t *testing.T) {
	var got customEmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[[[1.0, 2.0], [3.0, 4.0]]]`))
	}))
	defer srv.Close()

	tokens, err := newTestCustomEmbedder(srv.URL).EmbedTokens(context.Background(), "field of dharma", TaskTypeQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{"field of dharma"}, got.Inputs)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, tokens)
}

func TestCustomEmbedder_MalformedOutputIsPermanent(t *testing.T) {
	bodies := map[string]string{
		"non numeric":  `[[["a", "b"]]]`,
		"wrong shape":  `[[1.0, 2.0]]`,
		"batch of two": `[[[1.0]], [[2.0]]]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newTestCustomEmbedder(srv.URL).EmbedTokens(context.Background(), "x", TaskTypeDocument)
			require.Error(t, err)
			assert.True(t, IsPermanent(err))
		})
	}
}

func TestCustomEmbedder_StatusClassification(t *testing.T) {
	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("model loading"))
	}))
	defer srv.Close()
	e := newTestCustomEmbedder(srv.URL)

	_, err := e.EmbedTokens(context.Background(), "x", TaskTypeDocument)
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
	assert.Contains(t, err.Error(), "model loading")

	status = http.StatusBadRequest
	_, err = e.EmbedTokens(context.Background(), "x", TaskTypeDocument)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestCustomEmbedder_RetriesTimeouts(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, stall bool)
	}{
		{
			name: "slow headers",
			handler: func(w http.ResponseWriter, stall bool) {
				if stall {
					time.Sleep(150 * time.Millisecond)
				}
				_, _ = w.Write([]byte(`[[[1.0, 0.0]]]`))
			},
		},
		{
			name: "slow body",
			handler: func(w http.ResponseWriter, stall bool) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[[[1.0, `))
				w.(http.Flusher).Flush()
				if stall {
					time.Sleep(150 * time.Millisecond)
				}
				_, _ = w.Write([]byte(`0.0]]]`))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu    sync.Mutex
				calls int
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				calls++
				stall := calls < 3
				mu.Unlock()
				tt.handler(w, stall)
			}))
			defer srv.Close()

			embedder := NewCustomEmbedder(&config.Config{EmbeddingServiceURL: srv.URL, EmbeddingTimeout: 50 * time.Millisecond})
			_, err := embedder.EmbedTokens(context.Background(), "x", TaskTypeDocument)
			require.Error(t, err)
			assert.False(t, IsPermanent(err))

			svc := NewEmbeddingsService(embedder, WithDimensions(2), fastRetry(3))
			vec, err := svc.EmbedVerse(context.Background(), "x")
			require.NoError(t, err)
			assert.Equal(t, []float32{1, 0}, vec)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 3, calls)
		})
	}
}

func TestCustomEmbedder_TruncatedBodyIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "64")
		_, _ = w.Write([]byte(`[[[1.0`))
	}))
	defer srv.Close()

	_, err := newTestCustomEmbedder(srv.URL).EmbedTokens(context.Background(), "x", TaskTypeDocument)
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}
