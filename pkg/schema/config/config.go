package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for database and embedding operations
type Config struct {
	// PostgreSQL (pgvector index)
	PostgresURI string

	// Key-value verse rows: "postgres" or "sqlite"
	KVDriver string
	KVDSN    string

	// Embeddings
	EmbeddingProvider    string // "custom" or "vertex"
	EmbeddingServiceURL  string // For custom provider
	EmbeddingDimensions  int
	EmbeddingTimeout     time.Duration
	EmbeddingMaxAttempts int
	EmbeddingBackoff     time.Duration

	// Vertex AI (when EmbeddingProvider = "vertex")
	GCPProjectID string
	GCPLocation  string
	VertexModel  string
}

// Load reads the configuration from the environment
func Load() *Config {
	postgresURI := getEnv("POSTGRES_URI", "")
	return &Config{
		PostgresURI: postgresURI,

		KVDriver: getEnv("KV_DRIVER", "postgres"),
		KVDSN:    getEnv("KV_DSN", postgresURI),

		// The inference backend can take minutes to cold start
		EmbeddingProvider:    getEnv("EMBEDDING_PROVIDER", "custom"),
		EmbeddingServiceURL:  getEnv("EMBEDDING_SERVICE_URL", "http://localhost:8001/invocations"),
		EmbeddingDimensions:  getEnvInt("EMBEDDING_DIMENSIONS", 768),
		EmbeddingTimeout:     getEnvDuration("EMBEDDING_TIMEOUT", 300*time.Second),
		EmbeddingMaxAttempts: getEnvInt("EMBEDDING_MAX_ATTEMPTS", 3),
		EmbeddingBackoff:     getEnvDuration("EMBEDDING_BACKOFF", time.Second),

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),
		GCPLocation:  getEnv("GCP_LOCATION", "us-central1"),
		VertexModel:  getEnv("VERTEX_MODEL", "text-embedding-005"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return i
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}
