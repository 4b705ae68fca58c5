package writer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

const (
	transactionsSheet = "Transactions"
	summarySheet      = "Summary"
	diagnosticsSheet  = "Diagnostics"
)

// XLSXWriter writes a workbook with a Transactions sheet and, with
// IncludeHeader, Summary and Diagnostics sheets.
type XLSXWriter struct {
	IncludeHeader bool
}

func (w *XLSXWriter) Extension() string { return ".xlsx" }

func (w *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (w *XLSXWriter) Write(out io.Writer, info *models.StatementInfo) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"Date", "Description", "Amount", "Original Amount", "Key"}
	if err := setRow(f, transactionsSheet, 1, header); err != nil {
		return err
	}
	for i, txn := range info.Transactions {
		row := []interface{}{
			txn.Date.Format("2006-01-02"),
			strings.Join(txn.Description, "\n"),
			txn.Amount.InexactFloat64(),
			txn.AmountFormatted,
			txn.Key,
		}
		if err := setRow(f, transactionsSheet, i+2, row); err != nil {
			return err
		}
	}

	if w.IncludeHeader {
		if err := writeSummary(f, info); err != nil {
			return err
		}
		if err := writeDiagnostics(f, info.Diagnostics); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, info *models.StatementInfo) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add %s sheet: %w", summarySheet, err)
	}
	for i, kv := range metadata(info) {
		if err := setRow(f, summarySheet, i+1, []interface{}{kv[0], kv[1]}); err != nil {
			return err
		}
	}
	return nil
}

func writeDiagnostics(f *excelize.File, diags []models.Diagnostic) error {
	if _, err := f.NewSheet(diagnosticsSheet); err != nil {
		return fmt.Errorf("failed to add %s sheet: %w", diagnosticsSheet, err)
	}
	if err := setRow(f, diagnosticsSheet, 1, []interface{}{"Page", "Anchor", "Top", "Bottom", "Outcome", "Error"}); err != nil {
		return err
	}
	for i, d := range diags {
		row := []interface{}{d.Page, d.Anchor, d.Top, d.Bottom, string(d.Outcome), d.Error}
		if err := setRow(f, diagnosticsSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
