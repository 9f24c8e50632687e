package docx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

// Schema order of the property children we touch. Word rejects files whose
// pPr/tcPr/spPr children are out of order.
var (
	pPrOrder = []string{
		"pStyle", "keepNext", "keepLines", "pageBreakBefore", "framePr", "widowControl",
		"numPr", "suppressLineNumbers", "pBdr", "shd", "tabs", "suppressAutoHyphens",
		"kinsoku", "wordWrap", "overflowPunct", "topLinePunct", "autoSpaceDE", "autoSpaceDN",
		"bidi", "adjustRightInd", "snapToGrid", "spacing", "ind", "contextualSpacing",
		"mirrorIndents", "suppressOverlap", "jc", "textDirection", "textAlignment",
		"textboxTightWrap", "outlineLvl", "divId", "cnfStyle", "rPr", "sectPr", "pPrChange",
	}
	tcPrOrder = []string{
		"cnfStyle", "tcW", "gridSpan", "hMerge", "vMerge", "tcBorders", "shd", "noWrap",
		"tcMar", "textDirection", "tcFitText", "vAlign", "hideMark",
	}
	spPrOrder = []string{
		"xfrm", "custGeom", "prstGeom", "noFill", "solidFill", "gradFill", "blipFill",
		"pattFill", "grpFill", "ln", "effectLst", "effectDag", "scene3d", "sp3d", "extLst",
	}
)

// Document is a rendered .docx opened for styling.
type Document struct {
	path       string
	pkg        *Package
	parts      []string
	trees      map[string]*etree.Document
	tables     []*etree.Element
	paragraphs []*etree.Element
	pictures   []*etree.Element
}

// OpenDocument parses the story parts of the file at path.
func OpenDocument(path string) (*Document, error) {
	pkg, err := OpenPackage(path)
	if err != nil {
		return nil, err
	}
	d := &Document{path: path, pkg: pkg, trees: map[string]*etree.Document{}}
	for _, part := range pkg.StoryParts() {
		raw, ok := pkg.Part(part)
		if !ok {
			continue
		}
		tree := etree.NewDocument()
		if err := tree.ReadFromBytes(raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", part, err)
		}
		d.parts = append(d.parts, part)
		d.trees[part] = tree

		if part == partDocument {
			if body := tree.FindElement("//w:body"); body != nil {
				d.tables = body.FindElements(".//w:tbl")
			}
		}
		for _, p := range tree.FindElements("//w:p") {
			if p.FindElement(".//w:drawing") != nil {
				d.paragraphs = append(d.paragraphs, p)
			}
		}
		d.pictures = append(d.pictures, tree.FindElements("//pic:pic")...)
	}
	return d, nil
}

// Tables returns the text of each body table as table/row/cell.
func (d *Document) Tables() [][][]string {
	out := make([][][]string, len(d.tables))
	for ti, tbl := range d.tables {
		for _, tr := range tbl.SelectElements("w:tr") {
			var row []string
			for _, tc := range tr.SelectElements("w:tc") {
				row = append(row, cellText(tc))
			}
			out[ti] = append(out[ti], row)
		}
	}
	return out
}

func cellText(tc *etree.Element) string {
	var paras []string
	for _, p := range tc.SelectElements("w:p") {
		var b strings.Builder
		for _, t := range p.FindElements(".//w:t") {
			b.WriteString(t.Text())
		}
		paras = append(paras, b.String())
	}
	return strings.Join(paras, "\n")
}

func (d *Document) ImageParagraphs() []reports.ParagraphRef {
	out := make([]reports.ParagraphRef, len(d.paragraphs))
	for i := range d.paragraphs {
		out[i] = reports.ParagraphRef(i)
	}
	return out
}

func (d *Document) Images() []reports.ImageRef {
	out := make([]reports.ImageRef, len(d.pictures))
	for i := range d.pictures {
		out[i] = reports.ImageRef(i)
	}
	return out
}

// SetCellFill shades a cell, replacing any shading already there.
func (d *Document) SetCellFill(ref reports.CellRef, color string) error {
	tc, err := d.cell(ref)
	if err != nil {
		return err
	}
	tcPr := firstChild(tc, "w:tcPr")
	if old := tcPr.SelectElement("w:shd"); old != nil {
		tcPr.RemoveChild(old)
	}
	shd := etree.NewElement("w:shd")
	shd.CreateAttr("w:val", "clear")
	shd.CreateAttr("w:color", "auto")
	shd.CreateAttr("w:fill", strings.ToUpper(color))
	insertOrdered(tcPr, shd, tcPrOrder)
	return nil
}

func (d *Document) cell(ref reports.CellRef) (*etree.Element, error) {
	if ref.Table < 0 || ref.Table >= len(d.tables) {
		return nil, fmt.Errorf("table %d out of range", ref.Table)
	}
	rows := d.tables[ref.Table].SelectElements("w:tr")
	if ref.Row < 0 || ref.Row >= len(rows) {
		return nil, fmt.Errorf("row %d out of range in table %d", ref.Row, ref.Table)
	}
	cells := rows[ref.Row].SelectElements("w:tc")
	if ref.Col < 0 || ref.Col >= len(cells) {
		return nil, fmt.Errorf("cell %d out of range in table %d row %d", ref.Col, ref.Table, ref.Row)
	}
	return cells[ref.Col], nil
}

// SetParagraphStyle sets alignment and spacing (in points) on a paragraph.
func (d *Document) SetParagraphStyle(ref reports.ParagraphRef, align reports.Alignment, spaceBefore, spaceAfter int) error {
	i := int(ref)
	if i < 0 || i >= len(d.paragraphs) {
		return fmt.Errorf("paragraph %d out of range", i)
	}
	pPr := firstChild(d.paragraphs[i], "w:pPr")

	if old := pPr.SelectElement("w:spacing"); old != nil {
		pPr.RemoveChild(old)
	}
	spacing := etree.NewElement("w:spacing")
	spacing.CreateAttr("w:before", strconv.Itoa(spaceBefore*20))
	spacing.CreateAttr("w:after", strconv.Itoa(spaceAfter*20))
	insertOrdered(pPr, spacing, pPrOrder)

	if old := pPr.SelectElement("w:jc"); old != nil {
		pPr.RemoveChild(old)
	}
	jc := etree.NewElement("w:jc")
	jc.CreateAttr("w:val", string(align))
	insertOrdered(pPr, jc, pPrOrder)
	return nil
}

// AddShapeOutline draws a solid line around a picture.
func (d *Document) AddShapeOutline(ref reports.ImageRef, widthPt float64, color string) error {
	i := int(ref)
	if i < 0 || i >= len(d.pictures) {
		return fmt.Errorf("image %d out of range", i)
	}
	pic := d.pictures[i]
	spPr := pic.SelectElement("pic:spPr")
	if spPr == nil {
		spPr = pic.CreateElement("pic:spPr")
	}
	if old := spPr.SelectElement("a:ln"); old != nil {
		spPr.RemoveChild(old)
	}
	ln := etree.NewElement("a:ln")
	ln.CreateAttr("w", strconv.FormatInt(int64(widthPt*emuPerPoint), 10))
	ln.CreateElement("a:solidFill").CreateElement("a:srgbClr").CreateAttr("val", strings.ToUpper(color))
	insertOrdered(spPr, ln, spPrOrder)
	return nil
}

// Save writes the edited parts back to the file they came from.
func (d *Document) Save() error {
	for _, part := range d.parts {
		b, err := d.trees[part].WriteToBytes()
		if err != nil {
			return fmt.Errorf("encode %s: %w", part, err)
		}
		d.pkg.SetPart(part, b)
	}
	return d.pkg.Save(d.path)
}

var _ reports.StyledDocument = (*Document)(nil)

// firstChild returns parent's property element, creating it as the first child.
func firstChild(parent *etree.Element, tag string) *etree.Element {
	if el := parent.SelectElement(tag); el != nil {
		return el
	}
	el := etree.NewElement(tag)
	parent.InsertChildAt(0, el)
	return el
}

func insertOrdered(parent, child *etree.Element, order []string) {
	rank := func(tag string) int {
		for i, t := range order {
			if t == tag {
				return i
			}
		}
		return len(order)
	}
	r := rank(child.Tag)
	for _, tok := range parent.Child {
		el, ok := tok.(*etree.Element)
		if ok && rank(el.Tag) > r {
			parent.InsertChildAt(el.Index(), child)
			return
		}
	}
	parent.AddChild(child)
}
