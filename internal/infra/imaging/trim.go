package imaging

import (
	"image"
	"image/draw"
)

// DefaultWhiteTolerance is the per-channel distance from white still treated as padding.
const DefaultWhiteTolerance uint8 = 10

// Trim crops transparent edges, then near-white edges. An image with nothing
// to trim comes back unchanged.
func Trim(img image.Image, tolerance uint8) image.Image {
	if r, ok := alphaBounds(img); ok && r != img.Bounds() {
		img = crop(img, r)
	}
	if r, ok := contentBounds(img, tolerance); ok && r != img.Bounds() {
		img = crop(img, r)
	}
	return img
}

// alphaBounds is the bounding box of pixels that are not fully transparent.
func alphaBounds(img image.Image) (image.Rectangle, bool) {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img.Bounds(), true
	}
	return scanBounds(img, func(_, _, _, a uint32) bool { return a != 0 })
}

// contentBounds flattens each pixel over white and keeps the ones whose
// strongest channel differs from white by more than tolerance.
func contentBounds(img image.Image, tolerance uint8) (image.Rectangle, bool) {
	tol := uint32(tolerance)
	return scanBounds(img, func(r, g, b, a uint32) bool {
		return whiteDistance(r, a) > tol || whiteDistance(g, a) > tol || whiteDistance(b, a) > tol
	})
}

// whiteDistance takes a premultiplied 16-bit channel and its alpha.
func whiteDistance(c, a uint32) uint32 {
	flat := (c + (0xffff - a)) >> 8
	if flat > 255 {
		flat = 255
	}
	return 255 - flat
}

func scanBounds(img image.Image, keep func(r, g, b, a uint32) bool) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if !keep(r, g, bl, a) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// crop copies r into a fresh image anchored at the origin.
func crop(img image.Image, r image.Rectangle) image.Image {
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}
