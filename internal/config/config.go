package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service and ingestion configuration
type Config struct {
	// API Settings
	APITitle   string
	APIVersion string
	APIPrefix  string
	Port       string
	LogLevel   string

	// CORS
	CORSOrigins []string

	// Vector Search Backend: "pgvector", "vertex" or "memory"
	VectorBackend string
	IndexName     string

	// Vertex AI Vector Search settings (used when VectorBackend = "vertex")
	VertexProjectID            string
	VertexLocation             string
	VertexIndexID              string
	VertexIndexEndpointID      string
	VertexDeployedIndexID      string
	VertexPublicEndpointDomain string

	// Query path
	SearchDefaultK int
	SearchMaxK     int

	// Ingestion path
	IngestBatchSize      int
	IngestWorkers        int
	IngestRequestTimeout time.Duration
	TranslationPolicy    string
}

// Load reads the configuration from the environment
func Load() *Config {
	return &Config{
		APITitle:    getEnv("API_TITLE", "Verse Search API"),
		APIVersion:  getEnv("API_VERSION", "1.0.0"),
		APIPrefix:   getEnv("API_PREFIX", "/api/v1"),
		Port:        getEnv("PORT", "8081"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: parseCORSOrigins(getEnv("CORS_ORIGINS", "*")),

		VectorBackend: getEnv("VECTOR_BACKEND", "pgvector"),
		IndexName:     getEnv("INDEX_NAME", "verses"),

		VertexProjectID:            getEnv("VERTEX_PROJECT_ID", getEnv("GCP_PROJECT_ID", "")),
		VertexLocation:             getEnv("VERTEX_LOCATION", "us-central1"),
		VertexIndexID:              getEnv("VERTEX_INDEX_ID", ""),
		VertexIndexEndpointID:      getEnv("VERTEX_INDEX_ENDPOINT_ID", ""),
		VertexDeployedIndexID:      getEnv("VERTEX_DEPLOYED_INDEX_ID", ""),
		VertexPublicEndpointDomain: getEnv("VERTEX_PUBLIC_ENDPOINT_DOMAIN", ""),

		SearchDefaultK: getEnvInt("SEARCH_DEFAULT_K", 5),
		SearchMaxK:     getEnvInt("SEARCH_MAX_K", 50),

		IngestBatchSize:      getEnvInt("INGEST_BATCH_SIZE", 100),
		IngestWorkers:        getEnvInt("INGEST_WORKERS", 1),
		IngestRequestTimeout: getEnvDuration("INGEST_REQUEST_TIMEOUT", 200*time.Second),
		TranslationPolicy:    getEnv("TRANSLATION_POLICY", "first"),
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

func parseCORSOrigins(value string) []string {
	var origins []string
	if err := json.Unmarshal([]byte(value), &origins); err == nil {
		return origins
	}
	parts := strings.Split(value, ",")
	origins = make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
