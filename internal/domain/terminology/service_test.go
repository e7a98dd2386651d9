package terminology

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newRand(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

func newTestService() *Service {
	return NewService(Set{
		Disorders: Table{
			{Code: "44054006", Display: "Diabetes mellitus type 2"},
			{Code: "38341003", Display: "Hypertensive disorder"},
			{Code: "13645005", Display: "Chronic obstructive lung disease"},
		},
		AllergyReactions: Table{{Code: "39579001", Display: "Anaphylaxis", Severity: "severe"}},
	})
}

func TestService_Tables(t *testing.T) {
	tables := newTestService().Tables()
	if len(tables) != 4 {
		t.Fatalf("expected 4 tables, got %d", len(tables))
	}
	if tables[0].Name != TableAllergyNames {
		t.Errorf("expected sorted names, first is %q", tables[0].Name)
	}
	for _, ti := range tables {
		if ti.Name == TableDisorders && ti.Entries != 3 {
			t.Errorf("expected 3 disorders, got %d", ti.Entries)
		}
	}
}

func TestService_Search(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name    string
		table   string
		query   string
		limit   int
		want    int
		wantErr error
	}{
		{"display substring", TableDisorders, "disorder", 10, 1, nil},
		{"case insensitive", TableDisorders, "DIABETES", 10, 1, nil},
		{"code prefix", TableDisorders, "3", 10, 1, nil},
		{"limit", TableDisorders, "e", 2, 2, nil},
		{"no match", TableDisorders, "fracture", 10, 0, nil},
		{"unknown table", "icd10", "x", 10, 0, ErrUnknownTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(ctx, tt.table, tt.query, tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d results, got %d: %+v", tt.want, len(got), got)
			}
		})
	}
}

func TestService_Search_EmptyQuery(t *testing.T) {
	if _, err := newTestService().Search(context.Background(), TableDisorders, "", 10); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestService_Lookup(t *testing.T) {
	svc := newTestService()

	e, err := svc.Lookup(context.Background(), TableAllergyReactions, "39579001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Severity != "severe" {
		t.Errorf("expected severity severe, got %q", e.Severity)
	}

	_, err = svc.Lookup(context.Background(), TableAllergyReactions, "0000")
	if !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}

// =========== Handler ===========

func newTestHandler() *echo.Echo {
	e := echo.New()
	NewHandler(newTestService()).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func TestHandler_ListTables(t *testing.T) {
	e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminology", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tables []TableInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &tables); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(tables) != 4 {
		t.Fatalf("expected 4 tables, got %d", len(tables))
	}
}

func TestHandler_Search(t *testing.T) {
	e := newTestHandler()

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"success", "/api/v1/terminology/disorders?q=diabetes", http.StatusOK},
		{"missing query", "/api/v1/terminology/disorders", http.StatusBadRequest},
		{"unknown table", "/api/v1/terminology/cpt?q=x", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandler_Lookup(t *testing.T) {
	e := newTestHandler()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/terminology/disorders/38341003", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var entry Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry.Display != "Hypertensive disorder" {
		t.Errorf("unexpected entry %+v", entry)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/terminology/disorders/0000", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
