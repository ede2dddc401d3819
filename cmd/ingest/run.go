package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verse-search-api/internal/app"
	"github.com/verse-search-api/internal/merger"
	"github.com/verse-search-api/internal/services"
	"github.com/verse-search-api/internal/source"
	pkgservices "github.com/verse-search-api/pkg/schema/services"
)

type ingestMode int

const (
	ingestModeAll ingestMode = iota
	ingestModeIndex
	ingestModeLoad
)

var errPartialFailure = errors.New("some documents failed to index")

type ingestFlags struct {
	canonical     string
	translations  []string
	policy        string
	failOnPartial bool
}

func newIngestCmd(e *env, use, short string, mode ingestMode) *cobra.Command {
	var flags ingestFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

Datasets are read from local paths or file://, s3:// and gs:// URLs. The run
summary is printed as JSON. Per-document failures are listed in the summary
and only fail the command with --fail-on-partial.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, e, mode, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.canonical, "canonical", "c", "", "Canonical dataset URL")
	cmd.Flags().StringArrayVarP(&flags.translations, "translation", "t", nil, "Translation dataset URL, repeatable")
	cmd.Flags().StringVar(&flags.policy, "policy", "", "Translation policy when several translations exist: first, last or concat (default TRANSLATION_POLICY)")
	cmd.Flags().BoolVar(&flags.failOnPartial, "fail-on-partial", false, "Exit non-zero when any document failed")
	_ = cmd.MarkFlagRequired("canonical")

	return cmd
}

func runIngest(cmd *cobra.Command, e *env, mode ingestMode, flags ingestFlags) error {
	ctx := cmd.Context()

	policyName := flags.policy
	if policyName == "" {
		policyName = e.cfg.TranslationPolicy
	}
	policy, err := merger.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	reader := source.NewReader()
	canonical, err := reader.Canonical(ctx, flags.canonical)
	if err != nil {
		return err
	}
	translations, err := reader.Translations(ctx, flags.translations...)
	if err != nil {
		return err
	}

	stores, err := app.OpenStores(ctx, e.cfg, e.schema, e.logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	var loader *services.VerseLoader
	if mode != ingestModeIndex {
		if stores.Verses == nil {
			return errors.New("no key-value store configured, set KV_DSN or POSTGRES_URI")
		}
		loader = services.NewVerseLoader(stores.Verses, e.cfg.IngestBatchSize, e.logger)
	}

	var indexer *services.BulkIndexer
	if mode != ingestModeLoad {
		embeddings, err := pkgservices.NewEmbeddingsServiceFromConfig(ctx, e.schema, e.logger)
		if err != nil {
			return err
		}
		defer embeddings.Close()

		indexer = services.NewBulkIndexer(stores.Index, embeddings, services.BulkIndexerOptions{
			BatchSize:      e.cfg.IngestBatchSize,
			Workers:        e.cfg.IngestWorkers,
			RequestTimeout: e.cfg.IngestRequestTimeout,
			Logger:         e.logger,
		})
	}

	pipeline := services.NewPipeline(loader, merger.New(merger.WithPolicy(policy)), indexer, e.logger)
	summary, runErr := pipeline.Run(ctx, canonical, translations, services.RunOptions{
		SkipKeyValue: mode == ingestModeIndex,
		SkipIndex:    mode == ingestModeLoad,
	})

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if runErr != nil {
		return runErr
	}
	if flags.failOnPartial && len(summary.Failed) > 0 {
		return fmt.Errorf("%w: %d of %d", errPartialFailure, len(summary.Failed), len(summary.Failed)+summary.Indexed)
	}
	return nil
}
