package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/verse-search-api/internal/app"
	"github.com/verse-search-api/internal/config"
	"github.com/verse-search-api/internal/handlers"
	"github.com/verse-search-api/internal/middleware"
	"github.com/verse-search-api/internal/services"
	schemacfg "github.com/verse-search-api/pkg/schema/config"
	pkgservices "github.com/verse-search-api/pkg/schema/services"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cfg := config.Load()
	schema := schemacfg.Load()
	logger := app.SetupLogging(cfg.LogLevel, os.Getenv("DEBUG") == "true")

	ctx := context.Background()

	stores, err := app.OpenStores(ctx, cfg, schema, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open stores")
	}

	embeddingsSvc, err := pkgservices.NewEmbeddingsServiceFromConfig(ctx, schema, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize embeddings service")
	}

	retriever := services.NewRetriever(stores.Index, embeddingsSvc, cfg.SearchMaxK)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSMiddleware(cfg))

	// Create API group with prefix
	api := e.Group(cfg.APIPrefix)

	// Register handlers
	handlers.NewHealthHandler(stores.KV).RegisterRoutes(api)
	handlers.NewSearchHandler(retriever, cfg.SearchDefaultK).RegisterRoutes(api)
	if stores.Verses != nil {
		handlers.NewVerseHandler(services.NewVerseService(stores.Verses)).RegisterRoutes(api)
	} else {
		logger.Warn().Msg("No key-value store configured, verse lookup disabled")
	}

	// Root health check
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"name":    cfg.APITitle,
			"version": cfg.APIVersion,
			"status":  "running",
		})
	})

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info().Str("addr", addr).Str("version", cfg.APIVersion).Msgf("Starting %s", cfg.APITitle)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down server")
	}
	if err := embeddingsSvc.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing embeddings client")
	}
	if err := stores.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing stores")
	}

	logger.Info().Msg("Server stopped")
}
