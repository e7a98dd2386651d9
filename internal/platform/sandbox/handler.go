package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/demodata/internal/domain/resident"
	"github.com/ehr/demodata/internal/domain/terminology"
	"github.com/ehr/demodata/pkg/pagination"
)

var errInvalidRequest = errors.New("invalid generate request")

// RosterSource loads the roster for each generation request.
type RosterSource func() (resident.Roster, error)

// GenerateRequest overrides parts of the configured run.
type GenerateRequest struct {
	Seed             *int64     `json:"seed"`
	Now              *time.Time `json:"now"`
	ExpandActivities *bool      `json:"expand_activities"`
}

// CategoryCount is one entry of the collections listing.
type CategoryCount struct {
	Name  Category `json:"name"`
	Count int      `json:"count"`
}

// SeedHandler serves generated collections over HTTP.
type SeedHandler struct {
	base    Config
	catalog terminology.Catalog
	terms   terminology.Set
	roster  RosterSource
	logger  zerolog.Logger

	mu          sync.Mutex
	collections *Collections
	summary     *Summary
}

// NewSeedHandler creates a handler with no generated data.
func NewSeedHandler(base Config, catalog terminology.Catalog, terms terminology.Set, roster RosterSource, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		base:    base,
		catalog: catalog,
		terms:   terms,
		roster:  roster,
		logger:  logger,
	}
}

// RegisterRoutes registers sandbox routes on the given Echo group.
func (h *SeedHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/generate", h.handleGenerate)
	g.GET("/summary", h.handleSummary)
	g.GET("/collections", h.handleListCollections)
	g.GET("/collections/:category", h.handleListRecords)
	g.GET("/export/:category/ndjson", h.handleExportNDJSON)
	g.POST("/reset", h.handleReset)
}

// Generate runs the generator with req applied over the base config and
// replaces the current collections.
func (h *SeedHandler) Generate(req GenerateRequest) (*Summary, error) {
	cfg := h.base
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.Now != nil {
		cfg.Now = req.Now.UTC()
	}
	if req.ExpandActivities != nil {
		cfg.ExpandActivities = *req.ExpandActivities
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	roster, err := h.roster()
	if err != nil {
		return nil, err
	}

	collections, summary := NewGenerator(cfg, h.catalog, h.terms, h.logger).Generate(roster)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.collections = collections
	h.summary = &summary
	return &summary, nil
}

func (h *SeedHandler) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	summary, err := h.Generate(req)
	switch {
	case errors.Is(err, errInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, resident.ErrRosterNotFound):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// Collections returns the current collections, or an empty set.
func (h *SeedHandler) Collections() *Collections {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.collections == nil {
		return &Collections{}
	}
	return h.collections
}

func (h *SeedHandler) handleSummary(c echo.Context) error {
	h.mu.Lock()
	summary := h.summary
	h.mu.Unlock()

	if summary == nil {
		return echo.NewHTTPError(http.StatusNotFound, "nothing generated yet")
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *SeedHandler) handleListCollections(c echo.Context) error {
	collections := h.Collections()
	out := make([]CategoryCount, 0, len(Categories))
	for _, cat := range Categories {
		out = append(out, CategoryCount{Name: cat, Count: collections.Len(cat)})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SeedHandler) handleListRecords(c echo.Context) error {
	cat, err := ParseCategory(c.Param("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	all, err := h.Collections().Items(cat)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	p := pagination.FromContext(c)
	resp := pagination.NewResponse(pagination.Window(all, p), len(all), p.Limit, p.Offset)
	resp.Links = p.Links(c.Request().URL.Path, len(all))
	return c.JSON(http.StatusOK, resp)
}

func (h *SeedHandler) handleReset(c echo.Context) error {
	h.mu.Lock()
	h.collections = nil
	h.summary = nil
	h.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

func (h *SeedHandler) handleExportNDJSON(c echo.Context) error {
	cat, err := ParseCategory(c.Param("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().WriteHeader(http.StatusOK)
	return ExportNDJSON(c.Response().Writer, h.Collections(), cat)
}

// ExportNDJSON writes the records of category as newline-delimited JSON.
func ExportNDJSON(w io.Writer, c *Collections, cat Category) error {
	all, err := c.Items(cat)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, r := range all {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding %s: %w", cat, err)
		}
	}
	return nil
}
