// Package reporting evaluates predefined aggregate measures over a set of
// generated collections.
package reporting

import (
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/demodata/internal/platform/sandbox"
)

// MeasureDefinition defines a reporting measure.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	evaluate func(c *sandbox.Collections) []map[string]any
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string           `json:"measure_id"`
	MeasureName string           `json:"measure_name"`
	GeneratedAt time.Time        `json:"generated_at"`
	Results     []map[string]any `json:"results"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "records-per-category",
		Name:        "Records per Category",
		Description: "Number of generated records in each output collection",
		evaluate:    recordsPerCategory,
	},
	{
		ID:          "financial-totals-by-type",
		Name:        "Financial Totals by Type",
		Description: "Transaction count and summed amount per financial transaction type",
		evaluate:    financialTotalsRows,
	},
	{
		ID:          "administrations-by-status",
		Name:        "Administrations by Status",
		Description: "Count of prescription administrations grouped by status",
		evaluate:    administrationsByStatus,
	},
	{
		ID:          "observations-by-vital",
		Name:        "Observations by Vital Sign",
		Description: "Count, minimum and maximum value per LOINC vital sign",
		evaluate:    observationsByVital,
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Evaluate runs m over c.
func (m *MeasureDefinition) Evaluate(c *sandbox.Collections) MeasureReport {
	results := m.evaluate(c)
	if results == nil {
		results = []map[string]any{}
	}
	return MeasureReport{
		MeasureID:   m.ID,
		MeasureName: m.Name,
		GeneratedAt: time.Now().UTC(),
		Results:     results,
	}
}

// TypeTotal aggregates the financial transactions of one type.
type TypeTotal struct {
	Type         string  `json:"type"`
	Transactions int     `json:"transactions"`
	Amount       float64 `json:"amount"`
}

// FinancialTotals sums financial transactions per type, ordered by type.
func FinancialTotals(records []sandbox.Record[sandbox.FinancialData]) []TypeTotal {
	byType := make(map[string]*TypeTotal)
	for _, r := range records {
		t, ok := byType[r.Data.Type]
		if !ok {
			t = &TypeTotal{Type: r.Data.Type}
			byType[r.Data.Type] = t
		}
		t.Transactions++
		t.Amount += r.Data.Amount
	}

	out := make([]TypeTotal, 0, len(byType))
	for _, t := range byType {
		t.Amount = math.Round(t.Amount*100) / 100
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func recordsPerCategory(c *sandbox.Collections) []map[string]any {
	rows := make([]map[string]any, 0, len(sandbox.Categories))
	for _, cat := range sandbox.Categories {
		rows = append(rows, map[string]any{"category": string(cat), "total": c.Len(cat)})
	}
	return rows
}

func financialTotalsRows(c *sandbox.Collections) []map[string]any {
	var rows []map[string]any
	for _, t := range FinancialTotals(c.Financials) {
		rows = append(rows, map[string]any{"type": t.Type, "total": t.Transactions, "amount": t.Amount})
	}
	return rows
}

func administrationsByStatus(c *sandbox.Collections) []map[string]any {
	counts := make(map[string]int)
	for _, a := range c.Administrations {
		counts[a.Data.Status]++
	}
	return countRows("status", counts)
}

func observationsByVital(c *sandbox.Collections) []map[string]any {
	type agg struct {
		display  string
		n        int
		min, max float64
	}
	byCode := make(map[string]*agg)
	for _, o := range c.Observations {
		a, ok := byCode[o.Data.LOINC.Code]
		if !ok {
			a = &agg{display: o.Data.LOINC.Display, min: o.Data.Value, max: o.Data.Value}
			byCode[o.Data.LOINC.Code] = a
		}
		a.n++
		a.min = math.Min(a.min, o.Data.Value)
		a.max = math.Max(a.max, o.Data.Value)
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([]map[string]any, 0, len(codes))
	for _, code := range codes {
		a := byCode[code]
		rows = append(rows, map[string]any{"code": code, "display": a.display, "total": a.n, "min": a.min, "max": a.max})
	}
	return rows
}

// countRows renders counts ordered by descending total, then key.
func countRows(key string, counts map[string]int) []map[string]any {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	rows := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, map[string]any{key: k, "total": counts[k]})
	}
	return rows
}

// Source returns the collections measures are evaluated against.
type Source func() *sandbox.Collections

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	source Source
}

// NewHandler creates a new reporting handler.
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports")
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure evaluates a measure against the current collections.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}
	return c.JSON(http.StatusOK, measure.Evaluate(h.source()))
}
