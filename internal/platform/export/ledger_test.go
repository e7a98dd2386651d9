package export

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ehr/demodata/internal/platform/reporting"
	"github.com/ehr/demodata/internal/platform/sandbox"
)

func TestWriteLedger(t *testing.T) {
	c := generated(t)
	path := filepath.Join(t.TempDir(), "ledger.xlsx")

	if err := WriteLedger(path, c.Financials); err != nil {
		t.Fatalf("WriteLedger: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != LedgerSheet || got[1] != SummarySheet {
		t.Fatalf("unexpected sheets %v", got)
	}

	rows, err := f.GetRows(LedgerSheet)
	if err != nil {
		t.Fatalf("ledger rows: %v", err)
	}
	if len(rows) != len(c.Financials)+1 {
		t.Fatalf("expected %d rows, got %d", len(c.Financials)+1, len(rows))
	}
	for i, h := range LedgerHeader {
		if rows[0][i] != h {
			t.Errorf("header %d: expected %q, got %q", i, h, rows[0][i])
		}
	}

	summary, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("summary rows: %v", err)
	}
	if want := len(reporting.FinancialTotals(c.Financials)) + 1; len(summary) != want {
		t.Fatalf("expected %d summary rows, got %d", want, len(summary))
	}
}

func TestWriteLedger_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := WriteLedger(path, []sandbox.Record[sandbox.FinancialData]{}); err != nil {
		t.Fatalf("WriteLedger: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(LedgerSheet)
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
