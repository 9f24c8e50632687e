// Package xlsx fills findings spreadsheets with excelize.
package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

// Columns of a findings row. E and I are left blank in the template layout.
const (
	colAppName        = 1  // A
	colURL            = 2  // B
	colVulnID         = 3  // C
	colCVSS           = 4  // D
	colTitle          = 6  // F
	colDescription    = 7  // G
	colImpact         = 8  // H
	colRecommendation = 10 // J
	colReference      = 11 // K
	colTag            = 12 // L
)

// Engine opens workbook templates.
type Engine struct{}

func (Engine) OpenWorkbook(path string) (reports.Workbook, error) {
	w, err := OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	return w, nil
}

var _ reports.WorkbookEngine = Engine{}

// Workbook appends findings to the active sheet of a template.
type Workbook struct {
	f       *excelize.File
	sheet   string
	next    int
	wrapped map[int]int // template style -> same style with wrap on
}

// OpenWorkbook opens path and positions after the last used row of the active sheet.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return &Workbook{f: f, sheet: sheet, next: len(rows) + 1, wrapped: map[int]int{}}, nil
}

// wrapStyle returns a copy of style base with text wrapping turned on,
// creating it the first time base is seen.
func (w *Workbook) wrapStyle(base int) (int, error) {
	if id, ok := w.wrapped[base]; ok {
		return id, nil
	}
	st, err := w.f.GetStyle(base)
	if err != nil {
		return 0, err
	}
	if st.Alignment == nil {
		st.Alignment = &excelize.Alignment{Vertical: "top"}
	}
	st.Alignment.WrapText = true
	id, err := w.f.NewStyle(st)
	if err != nil {
		return 0, err
	}
	w.wrapped[base] = id
	return id, nil
}

// Sheet is the name of the sheet being filled.
func (w *Workbook) Sheet() string { return w.sheet }

// AppendFinding writes one row and returns its 1-based number.
func (w *Workbook) AppendFinding(row reports.FindingRow) (int, error) {
	r := w.next
	values := map[int]any{
		colAppName:        row.AppName,
		colURL:            row.URL,
		colVulnID:         row.VulnID,
		colCVSS:           row.CVSS,
		colTitle:          row.Title,
		colImpact:         row.Impact,
		colRecommendation: row.Recommendation,
		colReference:      row.Reference,
	}
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col, r)
		if err != nil {
			return 0, err
		}
		if err := w.f.SetCellValue(w.sheet, cell, v); err != nil {
			return 0, fmt.Errorf("set %s: %w", cell, err)
		}
	}

	desc, _ := excelize.CoordinatesToCellName(colDescription, r)
	runs := make([]excelize.RichTextRun, 0, len(row.Description))
	for _, tr := range row.Description {
		run := excelize.RichTextRun{Text: tr.Text}
		if tr.Bold {
			run.Font = &excelize.Font{Bold: true}
		}
		runs = append(runs, run)
	}
	if len(runs) > 0 {
		if err := w.f.SetCellRichText(w.sheet, desc, runs); err != nil {
			return 0, fmt.Errorf("set %s: %w", desc, err)
		}
	}
	base, err := w.f.GetCellStyle(w.sheet, desc)
	if err != nil {
		return 0, fmt.Errorf("style %s: %w", desc, err)
	}
	wrapped, err := w.wrapStyle(base)
	if err != nil {
		return 0, fmt.Errorf("style %s: %w", desc, err)
	}
	if err := w.f.SetCellStyle(w.sheet, desc, desc, wrapped); err != nil {
		return 0, fmt.Errorf("style %s: %w", desc, err)
	}

	tag, _ := excelize.CoordinatesToCellName(colTag, r)
	formula := fmt.Sprintf(`A%d&", "&C%d&", "&F%d`, r, r, r)
	if err := w.f.SetCellFormula(w.sheet, tag, formula); err != nil {
		return 0, fmt.Errorf("set %s: %w", tag, err)
	}

	w.next++
	return r, nil
}

func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (w *Workbook) Close() error { return w.f.Close() }

var _ reports.Workbook = (*Workbook)(nil)
