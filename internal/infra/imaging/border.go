package imaging

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

// AddInsetBorder keeps the canvas size: content is resampled into the area
// inside the border, a solid 1px outline is drawn at the edge and the inner
// rings fade toward white. Images too small for that get an expanding border.
func AddInsetBorder(img image.Image, width int, c reports.RGB, fade float64) *image.RGBA {
	if width < 1 {
		width = 1
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2*width+2 || h < 2*width+2 {
		return AddExpandBorder(img, width, c)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	inner := image.Rect(width, width, w-width, h-width)
	xdraw.CatmullRom.Scale(canvas, inner, img, b, xdraw.Over, nil)

	outline(canvas, 0, rgba(c))
	for i := 1; i < width; i++ {
		t := fade * float64(i) / float64(width)
		outline(canvas, i, FadeToward(c, t))
	}
	return canvas
}

// AddExpandBorder grows the canvas by width on every side.
func AddExpandBorder(img image.Image, width int, c reports.RGB) *image.RGBA {
	if width < 1 {
		width = 1
	}
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*width, b.Dy()+2*width))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(rgba(c)), image.Point{}, draw.Src)
	inner := image.Rect(width, width, width+b.Dx(), width+b.Dy())
	draw.Draw(canvas, inner, image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, inner, img, b.Min, draw.Over)
	return canvas
}

// FadeToward blends c toward white; t is clamped to [0,1].
func FadeToward(c reports.RGB, t float64) color.RGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	mix := func(v uint8) uint8 {
		return uint8((1-t)*float64(v) + t*255)
	}
	return color.RGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: 0xff}
}

// outline draws a 1px rectangle inset pixels in from the canvas edge.
func outline(img *image.RGBA, inset int, c color.RGBA) {
	b := img.Bounds()
	x0, y0 := b.Min.X+inset, b.Min.Y+inset
	x1, y1 := b.Max.X-1-inset, b.Max.Y-1-inset
	if x1 < x0 || y1 < y0 {
		return
	}
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, c)
		img.SetRGBA(x, y1, c)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, c)
		img.SetRGBA(x1, y, c)
	}
}

func rgba(c reports.RGB) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}
