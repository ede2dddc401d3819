// Package source retrieves canonical and translation datasets from local or
// object storage URLs (file://, s3://, gs://).
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	_ "github.com/viant/afsc/gs"
	_ "github.com/viant/afsc/s3"

	"github.com/verse-search-api/internal/models"
)

// Reader downloads and decodes dataset files
type Reader struct {
	fs afs.Service
}

// NewReader creates a Reader backed by the default afs service
func NewReader() *Reader {
	return &Reader{fs: afs.New()}
}

// Canonical downloads and decodes a canonical text dataset
func (r *Reader) Canonical(ctx context.Context, URL string) (*models.CanonicalText, error) {
	var text models.CanonicalText
	if err := r.decode(ctx, URL, &text); err != nil {
		return nil, err
	}
	return &text, nil
}

// Translations downloads and decodes each translation dataset, keeping the order of URLs
func (r *Reader) Translations(ctx context.Context, URLs ...string) ([]*models.TranslationText, error) {
	texts := make([]*models.TranslationText, 0, len(URLs))
	for _, URL := range URLs {
		var text models.TranslationText
		if err := r.decode(ctx, URL, &text); err != nil {
			return nil, err
		}
		texts = append(texts, &text)
	}
	return texts, nil
}

func (r *Reader) decode(ctx context.Context, URL string, target any) error {
	URL = normalize(URL)
	exists, err := r.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", URL, err)
	}
	if !exists {
		return fmt.Errorf("dataset not found: %s", URL)
	}
	data, err := r.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", URL, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", URL, err)
	}
	return nil
}

// normalize turns bare paths into file URLs
func normalize(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	return url.Normalize(location, "file")
}
