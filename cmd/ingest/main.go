package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verse-search-api/internal/app"
	"github.com/verse-search-api/internal/config"
	schemacfg "github.com/verse-search-api/pkg/schema/config"
)

// env carries configuration resolved before any subcommand runs
type env struct {
	cfg    *config.Config
	schema *schemacfg.Config
	logger zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool
	e := &env{}

	root := &cobra.Command{
		Use:          "ingest",
		Short:        "Load verse datasets into the key-value store and the vector index",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present
			_ = godotenv.Load()
			e.cfg = config.Load()
			e.schema = schemacfg.Load()
			e.logger = app.SetupLogging(e.cfg.LogLevel, debug)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newIngestCmd(e, "run", "Load key-value rows and index merged verses", ingestModeAll),
		newIngestCmd(e, "index", "Embed merged verses into the vector index only", ingestModeIndex),
		newIngestCmd(e, "load", "Write canonical and translation rows to the key-value store only", ingestModeLoad),
		newSetupCmd(e),
		newExportCmd(e),
	)
	return root
}
