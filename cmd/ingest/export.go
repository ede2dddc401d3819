package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verse-search-api/internal/app"
	"github.com/verse-search-api/internal/export"
	"github.com/verse-search-api/internal/repository"
)

func newExportCmd(e *env) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export indexed verse embeddings as Vertex AI datapoints (JSONL)",
		Long: `Export every verse in the configured vector index as one JSON datapoint per
line, the batch import format of Vertex AI Vector Search. The output may be a
local path or a file://, gs:// or s3:// URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, err := app.OpenStores(ctx, e.cfg, e.schema, e.logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			scanner, ok := stores.Index.(repository.VerseScanner)
			if !ok {
				return fmt.Errorf("vector backend %q does not support export", e.cfg.VectorBackend)
			}

			count, err := export.NewExporter().Export(ctx, scanner, output)
			if err != nil {
				return err
			}
			e.logger.Info().Int("datapoints", count).Str("output", output).Msg("export complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "embeddings.jsonl", "Output URL")
	return cmd
}
