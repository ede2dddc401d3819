package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/verse-search-api/internal/config"
)

// CORSMiddleware returns a configured CORS middleware
func CORSMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	allowCredentials := true
	for _, origin := range cfg.CORSOrigins {
		// browsers reject credentials with a wildcard origin
		if origin == "*" {
			allowCredentials = false
		}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: allowCredentials,
	})
}
