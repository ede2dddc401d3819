package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/verse-search-api/pkg/schema/config"
)

// CustomEmbedder implements TokenEmbedder against an HTTP inference endpoint
// that accepts {"inputs": [text]} and answers with a (1, T, D) nested array.
type CustomEmbedder struct {
	url        string
	httpClient *http.Client
}

// NewCustomEmbedder creates a new custom HTTP embedder
func NewCustomEmbedder(cfg *config.Config) *CustomEmbedder {
	return &CustomEmbedder{
		url:        cfg.EmbeddingServiceURL,
		httpClient: &http.Client{Timeout: cfg.EmbeddingTimeout},
	}
}

type customEmbeddingRequest struct {
	Inputs []string `json:"inputs"`
}

// EmbedTokens returns the token-level matrix for text. The task type is not
// used by this backend.
func (e *CustomEmbedder) EmbedTokens(ctx context.Context, text string, _ TaskType) ([][]float64, error) {
	jsonBody, err := json.Marshal(customEmbeddingRequest{Inputs: []string{text}})
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("embedding service error: status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, Permanent(err)
		}
		return nil, err
	}

	// Read failures (timeouts, dropped connections) stay retryable; only a
	// body that arrived complete and does not parse is permanent.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var batch [][][]float64
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	if len(batch) != 1 {
		return nil, Permanent(fmt.Errorf("unexpected batch size %d, want 1", len(batch)))
	}
	return batch[0], nil
}
