package terminology

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler provides read-only REST endpoints over the loaded terminology.
type Handler struct {
	svc *Service
}

// NewHandler creates a new terminology handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers terminology routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/terminology")
	g.GET("", h.ListTables)
	g.GET("/:table", h.Search)
	g.GET("/:table/:code", h.Lookup)
}

func getLimit(c echo.Context) int {
	limit, _ := strconv.Atoi(c.QueryParam("_count"))
	if limit <= 0 {
		limit, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}

// ListTables handles GET /api/v1/terminology
func (h *Handler) ListTables(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Tables())
}

// Search handles GET /api/v1/terminology/:table?q=...
func (h *Handler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	results, err := h.svc.Search(c.Request().Context(), c.Param("table"), query, getLimit(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, results)
}

// Lookup handles GET /api/v1/terminology/:table/:code
func (h *Handler) Lookup(c echo.Context) error {
	entry, err := h.svc.Lookup(c.Request().Context(), c.Param("table"), c.Param("code"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func toHTTPError(err error) error {
	if errors.Is(err, ErrUnknownTable) || errors.Is(err, ErrCodeNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
