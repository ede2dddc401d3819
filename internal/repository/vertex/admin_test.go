package vertex

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexMetadata(t *testing.T) {
	value, err := indexMetadata(768)
	require.NoError(t, err)

	cfg := value.GetStructValue().Fields["config"].GetStructValue()
	require.NotNil(t, cfg)
	assert.Equal(t, float64(768), cfg.Fields["dimensions"].GetNumberValue())
	assert.Equal(t, "COSINE_DISTANCE", cfg.Fields["distanceMeasureType"].GetStringValue())

	_, err = indexMetadata(0)
	assert.Error(t, err)
}

func TestDeployedIndexID(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Equal(t, "deployed_verse_search_v2_1700000000", deployedIndexID("verse-search.v2", now))
}

func TestResourceID(t *testing.T) {
	assert.Equal(t, "123", resourceID("projects/p/locations/us-central1/indexes/123"))
	assert.Equal(t, "plain", resourceID("plain"))
}

func TestNewProvisioner(t *testing.T) {
	_, err := NewProvisioner("", "us-central1", zerolog.Nop())
	assert.Error(t, err)

	p, err := NewProvisioner("proj", "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "projects/proj/locations/us-central1", p.parent())
	assert.Equal(t, "us-central1-aiplatform.googleapis.com:443", p.endpoint())
}
