package reports

import "context"

// ImageNormalizer prepares screenshots for embedding.
type ImageNormalizer interface {
	// Verify decodes the file fully; a nil error means the image is usable.
	Verify(path string) error
	Normalize(path string, border BorderConfig) (NormalizedImage, error)
}

// DocumentTemplate is a word-processor template being filled in.
type DocumentTemplate interface {
	// AddImage registers a picture and returns the value to place in the context.
	AddImage(img NormalizedImage) (any, error)
	// Text prepares a plain string for the context. Engines that escape at
	// output return it unchanged.
	Text(s string) string
	Render(data map[string]any) error
	Save(path string) error
}

// StyledDocument exposes the post-render edits the assembler needs without
// tying it to a document library's object model.
type StyledDocument interface {
	// Tables returns the text of every body table as table/row/cell.
	Tables() [][][]string
	// ImageParagraphs lists paragraphs (body, cells, headers, footers) holding a picture.
	ImageParagraphs() []ParagraphRef
	Images() []ImageRef
	SetCellFill(ref CellRef, color string) error
	SetParagraphStyle(ref ParagraphRef, align Alignment, spaceBefore, spaceAfter int) error
	AddShapeOutline(ref ImageRef, widthPt float64, color string) error
	Save() error
}

// DocumentEngine opens templates and rendered documents.
type DocumentEngine interface {
	OpenTemplate(path string) (DocumentTemplate, error)
	OpenStyled(path string) (StyledDocument, error)
}

// Workbook is a spreadsheet template being filled in.
type Workbook interface {
	// AppendFinding writes row after the last used row and returns its 1-based number.
	AppendFinding(row FindingRow) (int, error)
	SaveAs(path string) error
	Close() error
}

// WorkbookEngine opens spreadsheet templates.
type WorkbookEngine interface {
	OpenWorkbook(path string) (Workbook, error)
}

// Publisher port (interface untuk penyimpanan hasil export)
type Publisher interface {
	Publish(ctx context.Context, localPath, key string) (string, error)
}

// Recorder receives export outcomes for metrics.
type Recorder interface {
	ExportFinished(kind Kind, outcome string)
	ImageDegraded()
}
