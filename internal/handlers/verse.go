package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/services"
)

// VerseHandler serves stored verses by id
type VerseHandler struct {
	verses *services.VerseService
}

// NewVerseHandler creates a new verse handler
func NewVerseHandler(verses *services.VerseService) *VerseHandler {
	return &VerseHandler{verses: verses}
}

// GetVerse handles GET /verses/:id
func (h *VerseHandler) GetVerse(c echo.Context) error {
	detail, err := h.verses.GetVerse(c.Request().Context(), c.Param("id"))
	if errors.Is(err, models.ErrVerseNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Verse not found")
	}
	if err != nil {
		c.Logger().Errorf("verse lookup failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Lookup failed")
	}
	return c.JSON(http.StatusOK, detail)
}

// RegisterRoutes registers verse routes
func (h *VerseHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/verses/:id", h.GetVerse)
}
