package reports

// Kind of export
type Kind string

const (
	KindDocument    Kind = "word"
	KindSpreadsheet Kind = "excel"
)

// Result of a successful export
type Result struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
	// URL is set when the file was also published to object storage.
	URL  string `json:"url,omitempty"`
	Rows int    `json:"rows"`
}

// BorderMode selects how the pixel border is baked into screenshots.
type BorderMode string

const (
	BorderInset  BorderMode = "inset"
	BorderExpand BorderMode = "expand"
)

// RGB color triple
type RGB struct {
	R, G, B uint8
}

// BorderConfig is passed per call to the image normalizer.
type BorderConfig struct {
	Bake         bool
	Mode         BorderMode
	WidthPx      int
	Color        RGB
	FadeStrength float64
}

// DefaultBorder is a 1px grey inset border with a half-strength fade.
func DefaultBorder() BorderConfig {
	return BorderConfig{
		Bake:         true,
		Mode:         BorderInset,
		WidthPx:      1,
		Color:        RGB{128, 128, 128},
		FadeStrength: 0.5,
	}
}

// NormalizedImage is a screenshot ready for embedding.
type NormalizedImage struct {
	Path        string
	WidthInches float64
	Width       int
	Height      int
}

// Alignment of a paragraph
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// CellRef addresses a table cell in document order.
type CellRef struct {
	Table int
	Row   int
	Col   int
}

// ParagraphRef addresses a paragraph returned by ImageParagraphs.
type ParagraphRef int

// ImageRef addresses a picture returned by Images.
type ImageRef int

// TextRun is one styled piece of a rich text cell.
type TextRun struct {
	Text string
	Bold bool
}

// FindingRow is one spreadsheet data row.
type FindingRow struct {
	AppName        string
	URL            string
	VulnID         string
	CVSS           float64
	Title          string
	Description    []TextRun
	Impact         string
	Recommendation string
	Reference      string
}
