package reports

import (
	"strings"

	domain "github.com/bryanwahyu/pentest-report/internal/domain/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
)

// Shade is one severity cell and its fill color.
type Shade struct {
	Cell  domain.CellRef
	Color string
}

// SeverityShades finds the cells to color in one pass. Two layouts are
// recognized: a table whose header row has a "risk rating" (or "severity")
// column, and a two-column row labelled "severity". A cell matched by both
// is listed once. Cells whose text is not a known severity are skipped.
func SeverityShades(tables [][][]string) []Shade {
	var out []Shade
	seen := map[domain.CellRef]bool{}
	add := func(ref domain.CellRef, text string) {
		sev, ok := vulnerabilities.ParseSeverity(text)
		if !ok || seen[ref] {
			return
		}
		seen[ref] = true
		out = append(out, Shade{Cell: ref, Color: sev.Color()})
	}

	for ti, rows := range tables {
		if len(rows) == 0 {
			continue
		}
		col := headerColumn(rows[0])
		for ri, row := range rows {
			if col >= 0 && ri > 0 && col < len(row) {
				add(domain.CellRef{Table: ti, Row: ri, Col: col}, row[col])
			}
			if len(row) >= 2 && label(row[0]) == "severity" {
				add(domain.CellRef{Table: ti, Row: ri, Col: 1}, row[1])
			}
		}
	}
	return out
}

func headerColumn(header []string) int {
	for _, want := range []string{"risk rating", "severity"} {
		for i, h := range header {
			if label(h) == want {
				return i
			}
		}
	}
	return -1
}

func label(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Postprocess centers pictures, optionally outlines them, shades severity
// cells and saves the document in place.
func Postprocess(doc domain.StyledDocument, opts Options) error {
	for _, p := range doc.ImageParagraphs() {
		if err := doc.SetParagraphStyle(p, domain.AlignCenter, 0, 0); err != nil {
			return err
		}
	}
	if opts.PictureOutline {
		for _, img := range doc.Images() {
			if err := doc.AddShapeOutline(img, opts.OutlineWidthPt, opts.OutlineColor); err != nil {
				return err
			}
		}
	}
	for _, sh := range SeverityShades(doc.Tables()) {
		if err := doc.SetCellFill(sh.Cell, sh.Color); err != nil {
			return err
		}
	}
	return doc.Save()
}
