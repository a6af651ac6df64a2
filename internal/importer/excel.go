// Package importer moves forbidden-word rules and scan results in and out of
// Excel workbooks.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/rules"
)

// Column indices of the import sheet (0-based).
const (
	colWord          = 0 // Column A
	colCategory      = 1 // Column B
	colSeverity      = 2 // Column C
	colDescription   = 3 // Column D
	colCaseSensitive = 4 // Column E
	colUseRegex      = 5 // Column F
	colIsActive      = 6 // Column G

	headerRowIndex = 1 // Excel rows are 1-based, header is row 1
)

// Headers is the expected header row, in column order.
var Headers = []string{"word", "category", "severity", "description", "case_sensitive", "use_regex", "is_active"}

// ErrNoSheet is returned for a workbook without sheets.
var ErrNoSheet = errors.New("workbook has no sheets")

// WordRow is a validated rule read from one spreadsheet row.
type WordRow struct {
	Row  int // Excel row number (for error reporting)
	Word models.ForbiddenWord
}

// ImportError represents a validation error for a specific row.
type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ParseExcelFile reads the first sheet of r. Row 1 is the header. Blank
// rows are skipped; invalid rows are reported and left out of the result.
func ParseExcelFile(r io.Reader) ([]WordRow, []ImportError, error) {
	rows, err := openExcelRows(r)
	if err != nil {
		return nil, nil, err
	}

	var (
		out     []WordRow
		invalid []ImportError
	)
	for i, cells := range rows {
		rowNum := i + 1
		if rowNum == headerRowIndex || blank(cells) {
			continue
		}

		w, rowErr := parseRow(cells)
		if rowErr != nil {
			invalid = append(invalid, ImportError{Row: rowNum, Error: rowErr.Error()})
			continue
		}
		out = append(out, WordRow{Row: rowNum, Word: w})
	}
	return out, invalid, nil
}

func openExcelRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if rows == nil {
		rows = [][]string{}
	}
	return rows, nil
}

func parseRow(cells []string) (models.ForbiddenWord, error) {
	w := models.ForbiddenWord{
		Word:     cell(cells, colWord),
		Category: cell(cells, colCategory),
		Severity: cell(cells, colSeverity),
		IsActive: true,
	}
	if d := cell(cells, colDescription); d != "" {
		w.Description = &d
	}

	var err error
	if w.CaseSensitive, err = parseBool(cell(cells, colCaseSensitive), false); err != nil {
		return w, fmt.Errorf("case_sensitive: %w", err)
	}
	if w.UseRegex, err = parseBool(cell(cells, colUseRegex), false); err != nil {
		return w, fmt.Errorf("use_regex: %w", err)
	}
	if w.IsActive, err = parseBool(cell(cells, colIsActive), true); err != nil {
		return w, fmt.Errorf("is_active: %w", err)
	}

	if err = rules.ValidateForbiddenWord(&w); err != nil {
		return w, err
	}
	return w, nil
}

func cell(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseBool(raw string, def bool) (bool, error) {
	switch strings.ToLower(raw) {
	case "":
		return def, nil
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("%q is not a boolean", raw)
	}
}
