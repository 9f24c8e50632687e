// Package imaging trims, borders and re-encodes screenshots before they are
// embedded into reports.
package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

const (
	// DefaultDisplayWidth is the embedded width in inches.
	DefaultDisplayWidth = 6.48
	// DefaultPageContentWidth caps the display width.
	DefaultPageContentWidth = 6.5
)

// Options configures a Normalizer. Border settings are passed per call.
type Options struct {
	CacheDir           string
	WhiteTolerance     uint8
	DisplayWidthInches float64
	PageContentInches  float64
}

// Normalizer implements reports.ImageNormalizer.
type Normalizer struct {
	opts Options
	log  *zap.Logger
}

func NewNormalizer(opts Options, log *zap.Logger) (*Normalizer, error) {
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(os.TempDir(), "pentest-report-images")
	}
	if opts.DisplayWidthInches <= 0 {
		opts.DisplayWidthInches = DefaultDisplayWidth
	}
	if opts.PageContentInches <= 0 {
		opts.PageContentInches = DefaultPageContentWidth
	}
	if opts.DisplayWidthInches > opts.PageContentInches {
		opts.DisplayWidthInches = opts.PageContentInches
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image cache dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{opts: opts, log: log}, nil
}

// Verify fully decodes the file.
func (n *Normalizer) Verify(path string) error {
	_, err := decode(path)
	return err
}

// Normalize trims padding, optionally bakes a border and writes a PNG into
// the cache directory. Cached files are never removed here.
func (n *Normalizer) Normalize(path string, border reports.BorderConfig) (reports.NormalizedImage, error) {
	img, err := decode(path)
	if err != nil {
		return reports.NormalizedImage{}, err
	}
	img = Trim(img, n.opts.WhiteTolerance)
	img = ApplyBorder(img, border)

	out := filepath.Join(n.opts.CacheDir, uuid.NewString()+".png")
	if err := encodePNG(out, img); err != nil {
		return reports.NormalizedImage{}, err
	}
	size := img.Bounds().Size()
	n.log.Debug("normalized screenshot",
		zap.String("source", path),
		zap.String("output", out),
		zap.Int("width", size.X),
		zap.Int("height", size.Y),
	)
	return reports.NormalizedImage{
		Path:        out,
		WidthInches: n.opts.DisplayWidthInches,
		Width:       size.X,
		Height:      size.Y,
	}, nil
}

// ApplyBorder dispatches on the border mode; unknown modes expand.
func ApplyBorder(img image.Image, border reports.BorderConfig) image.Image {
	if !border.Bake {
		return img
	}
	switch border.Mode {
	case reports.BorderInset, "":
		return AddInsetBorder(img, border.WidthPx, border.Color, border.FadeStrength)
	default:
		return AddExpandBorder(img, border.WidthPx, border.Color)
	}
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(reports.ErrImageUnavailable, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Join(reports.ErrImageUnavailable, fmt.Errorf("decode %s: %w", filepath.Base(path), err))
	}
	return img, nil
}

func encodePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
