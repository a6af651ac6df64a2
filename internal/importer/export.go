package importer

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
)

const exportSheet = "Violations"

// ExportHeaders is the header row of the scan results workbook.
var ExportHeaders = []string{
	"contractor", "domain", "url", "title", "rule", "category",
	"word_found", "severity", "context", "position", "last_scanned",
}

// WriteScanResults writes one row per violation to w as an XLSX workbook.
func WriteScanResults(w io.Writer, rows []database.ExportRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(ExportHeaders))
	for i, h := range ExportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.ContractorName, r.ContractorDomain, r.URL, deref(r.Title),
			deref(r.RuleWord), deref(r.RuleCategory),
			r.WordFound, r.Severity, r.Context, r.Position, formatTime(r.LastScanned),
		}
		if err = f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
