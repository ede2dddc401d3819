package vertex

import (
	"context"
	"fmt"
	"strings"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// Provisioner creates the Vertex AI resources the index backend writes to:
// a stream-update index, a public endpoint and a deployment joining them.
// Each step is a long-running operation and blocks until it completes.
type Provisioner struct {
	projectID string
	location  string
	logger    zerolog.Logger
}

// NewProvisioner creates a provisioner for one project and region
func NewProvisioner(projectID, location string, logger zerolog.Logger) (*Provisioner, error) {
	if projectID == "" {
		return nil, fmt.Errorf("vertex project id is required")
	}
	if location == "" {
		location = "us-central1"
	}
	return &Provisioner{projectID: projectID, location: location, logger: logger}, nil
}

func (p *Provisioner) endpoint() string {
	return fmt.Sprintf("%s-aiplatform.googleapis.com:443", p.location)
}

func (p *Provisioner) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", p.projectID, p.location)
}

// CreateIndex creates a cosine-distance index with the given dimensions and
// returns its id
func (p *Provisioner) CreateIndex(ctx context.Context, displayName string, dimensions int) (string, error) {
	client, err := aiplatform.NewIndexClient(ctx, option.WithEndpoint(p.endpoint()))
	if err != nil {
		return "", fmt.Errorf("create index client: %w", err)
	}
	defer client.Close()

	metadata, err := indexMetadata(dimensions)
	if err != nil {
		return "", err
	}

	op, err := client.CreateIndex(ctx, &aiplatformpb.CreateIndexRequest{
		Parent: p.parent(),
		Index: &aiplatformpb.Index{
			DisplayName:       displayName,
			Description:       "Verse embeddings for semantic search",
			Metadata:          metadata,
			IndexUpdateMethod: aiplatformpb.Index_STREAM_UPDATE,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}
	p.logger.Info().Str("operation", op.Name()).Int("dimensions", dimensions).Msg("index creation started, this may take 30-60 minutes")

	index, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("wait for index: %w", err)
	}
	return resourceID(index.Name), nil
}

// CreateEndpoint creates a public index endpoint and returns its id and public domain
func (p *Provisioner) CreateEndpoint(ctx context.Context, displayName string) (id, publicDomain string, err error) {
	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(p.endpoint()))
	if err != nil {
		return "", "", fmt.Errorf("create endpoint client: %w", err)
	}
	defer client.Close()

	op, err := client.CreateIndexEndpoint(ctx, &aiplatformpb.CreateIndexEndpointRequest{
		Parent: p.parent(),
		IndexEndpoint: &aiplatformpb.IndexEndpoint{
			DisplayName:           displayName + "-endpoint",
			Description:           "Public endpoint for verse search",
			PublicEndpointEnabled: true,
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("create endpoint: %w", err)
	}
	p.logger.Info().Str("operation", op.Name()).Msg("endpoint creation started")

	endpoint, err := op.Wait(ctx)
	if err != nil {
		return "", "", fmt.Errorf("wait for endpoint: %w", err)
	}
	return resourceID(endpoint.Name), endpoint.PublicEndpointDomainName, nil
}

// DeployIndex deploys indexID to endpointID and returns the deployed index id
func (p *Provisioner) DeployIndex(ctx context.Context, indexID, endpointID, displayName string) (string, error) {
	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(p.endpoint()))
	if err != nil {
		return "", fmt.Errorf("create endpoint client: %w", err)
	}
	defer client.Close()

	deployedID := deployedIndexID(displayName, time.Now())
	op, err := client.DeployIndex(ctx, &aiplatformpb.DeployIndexRequest{
		IndexEndpoint: fmt.Sprintf("%s/indexEndpoints/%s", p.parent(), endpointID),
		DeployedIndex: &aiplatformpb.DeployedIndex{
			Id:    deployedID,
			Index: fmt.Sprintf("%s/indexes/%s", p.parent(), indexID),
			AutomaticResources: &aiplatformpb.AutomaticResources{
				MinReplicaCount: 1,
				MaxReplicaCount: 2,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("deploy index: %w", err)
	}
	p.logger.Info().Str("operation", op.Name()).Str("deployed_index_id", deployedID).Msg("deployment started, this may take 20-30 minutes")

	if _, err := op.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for deployment: %w", err)
	}
	return deployedID, nil
}

// indexMetadata builds the tree-AH index config; Vertex expects it as an
// untyped struct under "config"
func indexMetadata(dimensions int) (*structpb.Value, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("index dimensions must be positive, got %d", dimensions)
	}
	metadata, err := structpb.NewStruct(map[string]interface{}{
		"config": map[string]interface{}{
			"dimensions":                dimensions,
			"approximateNeighborsCount": 150,
			"distanceMeasureType":       "COSINE_DISTANCE",
			"algorithmConfig": map[string]interface{}{
				"treeAhConfig": map[string]interface{}{
					"leafNodeEmbeddingCount":   1000,
					"leafNodesToSearchPercent": 5,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build index metadata: %w", err)
	}
	return structpb.NewStructValue(metadata), nil
}

// deployedIndexID must start with a letter and hold only letters, digits and underscores
func deployedIndexID(displayName string, now time.Time) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, displayName)
	return fmt.Sprintf("deployed_%s_%d", sanitized, now.Unix())
}

// resourceID returns the last component of projects/X/locations/Y/indexes/Z
func resourceID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
