package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verse-search-api/internal/app"
	"github.com/verse-search-api/internal/repository/vertex"
)

func newSetupCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the key-value table and the pgvector index table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, err := app.OpenStores(ctx, e.cfg, e.schema, e.logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			if err := stores.EnsureSchema(ctx); err != nil {
				return err
			}
			e.logger.Info().
				Str("backend", e.cfg.VectorBackend).
				Str("index", e.cfg.IndexName).
				Int("dimensions", e.schema.EmbeddingDimensions).
				Msg("schema ready")
			return nil
		},
	}
	cmd.AddCommand(newSetupVertexCmd(e))
	return cmd
}

func newSetupVertexCmd(e *env) *cobra.Command {
	var (
		createIndex    bool
		createEndpoint bool
		deploy         bool
		indexID        string
		endpointID     string
		displayName    string
	)

	cmd := &cobra.Command{
		Use:   "vertex",
		Short: "Provision a Vertex AI Vector Search index, endpoint and deployment",
		Long: `Provision Vertex AI Vector Search resources, one step per invocation:

  ingest setup vertex --create-index
  ingest setup vertex --create-endpoint
  ingest setup vertex --deploy --index-id=XXX --endpoint-id=YYY

Each step waits for the long-running operation and prints the settings to add
to your environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := vertex.NewProvisioner(e.cfg.VertexProjectID, e.cfg.VertexLocation, e.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case createIndex:
				id, err := p.CreateIndex(ctx, displayName, e.schema.EmbeddingDimensions)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "VERTEX_INDEX_ID=%s\n", id)
			case createEndpoint:
				id, domain, err := p.CreateEndpoint(ctx, displayName)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "VERTEX_INDEX_ENDPOINT_ID=%s\nVERTEX_PUBLIC_ENDPOINT_DOMAIN=%s\n", id, domain)
			case deploy:
				if indexID == "" || endpointID == "" {
					return fmt.Errorf("--index-id and --endpoint-id are required for deployment")
				}
				deployed, err := p.DeployIndex(ctx, indexID, endpointID, displayName)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "VERTEX_INDEX_ENDPOINT_ID=%s\nVERTEX_DEPLOYED_INDEX_ID=%s\n", endpointID, deployed)
			default:
				return cmd.Help()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&createIndex, "create-index", false, "Create a stream-update index")
	cmd.Flags().BoolVar(&createEndpoint, "create-endpoint", false, "Create a public index endpoint")
	cmd.Flags().BoolVar(&deploy, "deploy", false, "Deploy an index to an endpoint")
	cmd.Flags().StringVar(&indexID, "index-id", "", "Index ID (for --deploy)")
	cmd.Flags().StringVar(&endpointID, "endpoint-id", "", "Endpoint ID (for --deploy)")
	cmd.Flags().StringVar(&displayName, "display-name", "verse-search", "Display name for created resources")
	cmd.MarkFlagsMutuallyExclusive("create-index", "create-endpoint", "deploy")
	return cmd
}
