package vertex

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/repository"
)

// Ensure VectorSearchRepository implements repository.VectorIndex
var _ repository.VectorIndex = (*VectorSearchRepository)(nil)

// Config holds Vertex AI Vector Search configuration
type Config struct {
	ProjectID            string // GCP project ID
	Location             string // e.g., "us-central1"
	IndexID              string // Stream-update index receiving upserts
	IndexEndpointID      string // Deployed index endpoint ID
	DeployedIndexID      string // The deployed index ID within the endpoint
	PublicEndpointDomain string // Public endpoint domain for queries (e.g., "123.us-central1-456.vdb.vertexai.goog")
}

// indexClient is the subset of aiplatform.IndexClient used for writes
type indexClient interface {
	UpsertDatapoints(ctx context.Context, req *aiplatformpb.UpsertDatapointsRequest, opts ...gax.CallOption) (*aiplatformpb.UpsertDatapointsResponse, error)
	Close() error
}

// matchClient is the subset of aiplatform.MatchClient used for queries
type matchClient interface {
	FindNeighbors(ctx context.Context, req *aiplatformpb.FindNeighborsRequest, opts ...gax.CallOption) (*aiplatformpb.FindNeighborsResponse, error)
	Close() error
}

// VectorSearchRepository implements repository.VectorIndex using Vertex AI
// Vector Search. Vertex only stores vectors, so the stored verse fields live
// in a SourceStore and are joined back after each query.
type VectorSearchRepository struct {
	config      Config
	indexClient indexClient
	matchClient matchClient
	sources     repository.SourceStore
}

// NewVectorSearchRepository creates a new Vertex AI vector search repository
func NewVectorSearchRepository(ctx context.Context, config Config, sources repository.SourceStore) (*VectorSearchRepository, error) {
	// For public endpoints, use the public domain; otherwise use regional endpoint
	regional := fmt.Sprintf("%s-aiplatform.googleapis.com:443", config.Location)
	matchEndpoint := regional
	if config.PublicEndpointDomain != "" {
		matchEndpoint = fmt.Sprintf("%s:443", config.PublicEndpointDomain)
	}

	mc, err := aiplatform.NewMatchClient(ctx, option.WithEndpoint(matchEndpoint))
	if err != nil {
		return nil, fmt.Errorf("create match client: %w", err)
	}

	ic, err := aiplatform.NewIndexClient(ctx, option.WithEndpoint(regional))
	if err != nil {
		mc.Close()
		return nil, fmt.Errorf("create index client: %w", err)
	}

	return newRepository(config, ic, mc, sources), nil
}

func newRepository(config Config, ic indexClient, mc matchClient, sources repository.SourceStore) *VectorSearchRepository {
	return &VectorSearchRepository{
		config:      config,
		indexClient: ic,
		matchClient: mc,
		sources:     sources,
	}
}

// Close closes the Vertex AI clients
func (r *VectorSearchRepository) Close() error {
	var firstErr error
	if r.matchClient != nil {
		firstErr = r.matchClient.Close()
	}
	if r.indexClient != nil {
		if err := r.indexClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *VectorSearchRepository) indexName() string {
	return fmt.Sprintf("projects/%s/locations/%s/indexes/%s", r.config.ProjectID, r.config.Location, r.config.IndexID)
}

// UpsertVerses streams the batch into the index with UpsertDatapoints. When
// Vertex rejects the batch for a data reason, datapoints are retried one by
// one to find the offending documents.
func (r *VectorSearchRepository) UpsertVerses(ctx context.Context, docs []models.IndexedVerse) ([]models.FailedDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	sources := make([]models.VerseSource, len(docs))
	datapoints := make([]*aiplatformpb.IndexDatapoint, len(docs))
	for i, doc := range docs {
		sources[i] = doc.VerseSource
		datapoints[i] = toDatapoint(doc)
	}

	if err := r.sources.PutSources(ctx, sources); err != nil {
		return nil, &models.IndexTransportError{Err: fmt.Errorf("store verse sources: %w", err)}
	}

	err := r.upsert(ctx, datapoints)
	if err == nil {
		return nil, nil
	}
	if isTransportError(err) {
		return nil, &models.IndexTransportError{Err: fmt.Errorf("upsert datapoints: %w", err)}
	}

	var failed []models.FailedDocument
	for i, dp := range datapoints {
		err := r.upsert(ctx, []*aiplatformpb.IndexDatapoint{dp})
		if err == nil {
			continue
		}
		if isTransportError(err) {
			return nil, &models.IndexTransportError{Err: fmt.Errorf("upsert datapoint %s: %w", dp.DatapointId, err)}
		}
		failed = append(failed, models.FailedDocument{
			DocID: docs[i].DocID,
			Cause: &models.IndexWriteError{DocID: docs[i].DocID, Err: err},
		})
	}
	return failed, nil
}

func (r *VectorSearchRepository) upsert(ctx context.Context, datapoints []*aiplatformpb.IndexDatapoint) error {
	_, err := r.indexClient.UpsertDatapoints(ctx, &aiplatformpb.UpsertDatapointsRequest{
		Index:      r.indexName(),
		Datapoints: datapoints,
	})
	return err
}

func toDatapoint(doc models.IndexedVerse) *aiplatformpb.IndexDatapoint {
	return &aiplatformpb.IndexDatapoint{
		DatapointId:   doc.DocID,
		FeatureVector: doc.Embedding,
		Restricts: []*aiplatformpb.IndexDatapoint_Restriction{
			{
				Namespace: "text_id",
				AllowList: []string{doc.TextID},
			},
		},
	}
}

// isTransportError reports whether a Vertex error means the index cannot be
// reached or the caller is not allowed to write, rather than a bad datapoint
func isTransportError(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.Unauthenticated, codes.PermissionDenied,
		codes.DeadlineExceeded, codes.Canceled, codes.NotFound, codes.Unknown:
		return true
	}
	return false
}

// SearchVersesByEmbedding performs vector similarity search using Vertex AI Vector Search
func (r *VectorSearchRepository) SearchVersesByEmbedding(ctx context.Context, embedding []float32, topK int) ([]models.VerseSource, error) {
	// Build the index endpoint resource name
	indexEndpoint := fmt.Sprintf(
		"projects/%s/locations/%s/indexEndpoints/%s",
		r.config.ProjectID,
		r.config.Location,
		r.config.IndexEndpointID,
	)

	req := &aiplatformpb.FindNeighborsRequest{
		IndexEndpoint:   indexEndpoint,
		DeployedIndexId: r.config.DeployedIndexID,
		Queries: []*aiplatformpb.FindNeighborsRequest_Query{
			{
				Datapoint: &aiplatformpb.IndexDatapoint{
					FeatureVector: embedding,
				},
				NeighborCount: int32(topK),
			},
		},
	}

	resp, err := r.matchClient.FindNeighbors(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}

	if len(resp.NearestNeighbors) == 0 || len(resp.NearestNeighbors[0].Neighbors) == 0 {
		return []models.VerseSource{}, nil
	}

	neighbors := resp.NearestNeighbors[0].Neighbors
	docIDs := make([]string, 0, len(neighbors))
	for _, neighbor := range neighbors {
		if id := neighbor.GetDatapoint().GetDatapointId(); id != "" {
			docIDs = append(docIDs, id)
		}
	}
	if len(docIDs) == 0 {
		return []models.VerseSource{}, nil
	}

	found, err := r.sources.GetSources(ctx, docIDs)
	if err != nil {
		return nil, fmt.Errorf("lookup verses: %w", err)
	}

	// Preserve the order from Vertex AI (sorted by relevance)
	results := make([]models.VerseSource, 0, len(neighbors))
	for _, neighbor := range neighbors {
		src, ok := found[neighbor.GetDatapoint().GetDatapointId()]
		if !ok {
			continue
		}
		// Cosine distance: similarity = 1 - distance
		src.Score = 1 - neighbor.Distance
		results = append(results, src)
	}
	return results, nil
}
