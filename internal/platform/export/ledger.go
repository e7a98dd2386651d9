package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ehr/demodata/internal/platform/reporting"
	"github.com/ehr/demodata/internal/platform/sandbox"
)

// Ledger workbook sheet names.
const (
	LedgerSheet  = "Ledger"
	SummarySheet = "Summary"
)

// LedgerHeader is the column header of the Ledger sheet.
var LedgerHeader = []string{"Resident", "Date/Time", "Type", "Description", "Amount"}

// SummaryHeader is the column header of the Summary sheet.
var SummaryHeader = []string{"Type", "Transactions", "Total"}

// WriteLedger writes the financial transactions to an xlsx workbook at
// path: one row per transaction plus a per-type summary sheet.
func WriteLedger(path string, records []sandbox.Record[sandbox.FinancialData]) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the ledger and stays active.
	if err := f.SetSheetName("Sheet1", LedgerSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	// Built-in number format 2 is "0.00".
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	if err := writeHeader(f, LedgerSheet, LedgerHeader, headerStyle, []float64{38, 22, 14, 22, 12}); err != nil {
		return err
	}
	for i, r := range records {
		row := []any{r.Data.ResidentID, r.Data.OccurrenceDatetime.String(), r.Data.Type, r.Data.Description, r.Data.Amount}
		if err := writeRow(f, LedgerSheet, i+2, row); err != nil {
			return err
		}
	}
	if len(records) > 0 {
		if err := f.SetCellStyle(LedgerSheet, "E2", fmt.Sprintf("E%d", len(records)+1), amountStyle); err != nil {
			return fmt.Errorf("failed to set amount style: %w", err)
		}
	}
	if err := f.SetPanes(LedgerSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	totals := reporting.FinancialTotals(records)
	if err := writeHeader(f, SummarySheet, SummaryHeader, headerStyle, []float64{16, 14, 14}); err != nil {
		return err
	}
	for i, t := range totals {
		if err := writeRow(f, SummarySheet, i+2, []any{t.Type, t.Transactions, t.Amount}); err != nil {
			return err
		}
	}
	if len(totals) > 0 {
		if err := f.SetCellStyle(SummarySheet, "C2", fmt.Sprintf("C%d", len(totals)+1), amountStyle); err != nil {
			return fmt.Errorf("failed to set amount style: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save ledger %s: %w", path, err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int, widths []float64) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if i < len(widths) {
			if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}
