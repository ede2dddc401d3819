// Package app wires configured stores for the api and ingest binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/verse-search-api/internal/config"
	"github.com/verse-search-api/internal/repository"
	"github.com/verse-search-api/internal/repository/kv"
	"github.com/verse-search-api/internal/repository/memory"
	"github.com/verse-search-api/internal/repository/postgres"
	"github.com/verse-search-api/internal/repository/vertex"
	schemacfg "github.com/verse-search-api/pkg/schema/config"
	"github.com/verse-search-api/pkg/schema/db"
)

// Stores holds the key-value store and the vector index selected by configuration
type Stores struct {
	// KV is nil when no key-value DSN is configured
	KV     *sqlx.DB
	Verses *kv.VerseRepository
	Index  repository.VectorIndex

	backend    string
	indexName  string
	dimensions int
	vectorDB   *sqlx.DB
	closers    []io.Closer
}

// OpenStores connects the key-value store (when configured) and the vector
// index named by cfg.VectorBackend
func OpenStores(ctx context.Context, cfg *config.Config, schema *schemacfg.Config, logger zerolog.Logger) (*Stores, error) {
	s := &Stores{
		backend:    cfg.VectorBackend,
		indexName:  cfg.IndexName,
		dimensions: schema.EmbeddingDimensions,
	}

	if schema.KVDSN != "" {
		conn, err := db.Open(ctx, schema.KVDriver, schema.KVDSN)
		if err != nil {
			return nil, fmt.Errorf("open key-value store: %w", err)
		}
		s.KV = conn
		s.Verses = kv.NewVerseRepository(conn, cfg.IngestBatchSize)
		s.closers = append(s.closers, conn)
		logger.Info().Str("driver", schema.KVDriver).Msg("key-value store connected")
	}

	if err := s.openIndex(ctx, cfg, schema); err != nil {
		s.Close()
		return nil, err
	}
	logger.Info().Str("backend", cfg.VectorBackend).Str("index", cfg.IndexName).Msg("vector index ready")
	return s, nil
}

func (s *Stores) openIndex(ctx context.Context, cfg *config.Config, schema *schemacfg.Config) error {
	switch cfg.VectorBackend {
	case "pgvector":
		conn := s.KV
		if conn == nil || schema.KVDriver != "postgres" || schema.KVDSN != schema.PostgresURI {
			var err error
			conn, err = db.OpenPostgres(ctx, schema.PostgresURI)
			if err != nil {
				return fmt.Errorf("open pgvector index: %w", err)
			}
			s.closers = append(s.closers, conn)
		}
		repo, err := postgres.NewVectorSearchRepository(conn, cfg.IndexName, schema.EmbeddingDimensions)
		if err != nil {
			return err
		}
		s.vectorDB = conn
		s.Index = repo

	case "vertex":
		if s.Verses == nil {
			return errors.New("vertex backend needs a key-value store for verse sources, set KV_DSN or POSTGRES_URI")
		}
		repo, err := vertex.NewVectorSearchRepository(ctx, vertex.Config{
			ProjectID:            cfg.VertexProjectID,
			Location:             cfg.VertexLocation,
			IndexID:              cfg.VertexIndexID,
			IndexEndpointID:      cfg.VertexIndexEndpointID,
			DeployedIndexID:      cfg.VertexDeployedIndexID,
			PublicEndpointDomain: cfg.VertexPublicEndpointDomain,
		}, s.Verses)
		if err != nil {
			return fmt.Errorf("open vertex index: %w", err)
		}
		s.Index = repo
		s.closers = append(s.closers, repo)

	case "memory":
		s.Index = memory.NewVectorIndex(schema.EmbeddingDimensions)

	default:
		return fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
	return nil
}

// EnsureSchema creates the key-value table and, for pgvector, the index table
func (s *Stores) EnsureSchema(ctx context.Context) error {
	if s.KV != nil {
		if err := db.EnsureVerseRows(ctx, s.KV); err != nil {
			return err
		}
	}
	if s.backend == "pgvector" && s.vectorDB != nil {
		if err := db.EnsureVectorIndex(ctx, s.vectorDB, s.indexName, s.dimensions); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every connection in reverse order of opening
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
