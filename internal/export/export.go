// Package export writes indexed verses as Vertex AI Vector Search datapoints
// (one JSON object per line) to local or object storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/afs"
	_ "github.com/viant/afsc/gs"
	_ "github.com/viant/afsc/s3"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository"
)

// Datapoint is a single embedding in the Vertex AI batch import format
type Datapoint struct {
	ID        string     `json:"id"`
	Embedding []float32  `json:"embedding"`
	Restricts []Restrict `json:"restricts,omitempty"`
}

// Restrict defines a token-based filter
type Restrict struct {
	Namespace string   `json:"namespace"`
	Allow     []string `json:"allow"`
}

// Exporter uploads datapoint files
type Exporter struct {
	fs afs.Service
}

// NewExporter creates an exporter backed by the default afs service
func NewExporter() *Exporter {
	return &Exporter{fs: afs.New()}
}

// Export scans every verse in scanner and uploads the JSONL file to URL. It
// returns the number of datapoints written.
func (e *Exporter) Export(ctx context.Context, scanner repository.VerseScanner, URL string) (int, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	count := 0

	err := scanner.ScanVerses(ctx, func(v models.IndexedVerse) error {
		if err := encoder.Encode(toDatapoint(v)); err != nil {
			return fmt.Errorf("encode %s: %w", v.DocID, err)
		}
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := e.fs.Upload(ctx, URL, 0o644, &buf); err != nil {
		return 0, fmt.Errorf("failed to upload %s: %w", URL, err)
	}
	return count, nil
}

func toDatapoint(v models.IndexedVerse) Datapoint {
	dp := Datapoint{ID: v.DocID, Embedding: v.Embedding}
	if v.TextID != "" {
		dp.Restricts = []Restrict{{Namespace: "text_id", Allow: []string{v.TextID}}}
	}
	return dp
}
