package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verse-search-api/internal/models"
	"github.com/verse-search-api/internal/services"
)

// SearchHandler handles search endpoints
type SearchHandler struct {
	retriever *services.Retriever
	defaultK  int
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(retriever *services.Retriever, defaultK int) *SearchHandler {
	if defaultK <= 0 {
		defaultK = 5
	}
	return &SearchHandler{
		retriever: retriever,
		defaultK:  defaultK,
	}
}

// SemanticSearch handles POST /search and GET /search?q=&k= - semantic verse search
func (h *SearchHandler) SemanticSearch(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SemanticSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request")
	}

	k := req.K
	if k == 0 {
		k = h.defaultK
	}

	results, err := h.retriever.Search(ctx, req.Query, k)
	if err != nil {
		var invalid *models.InvalidQueryError
		if errors.As(err, &invalid) {
			return echo.NewHTTPError(http.StatusBadRequest, invalid.Error())
		}
		c.Logger().Errorf("search failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Search failed")
	}

	return c.JSON(http.StatusOK, models.SemanticSearchResponse{
		Query:   req.Query,
		Results: results,
	})
}

// RegisterRoutes registers search routes
func (h *SearchHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/search", h.SemanticSearch)
	g.GET("/search", h.SemanticSearch)
}
