package pianoroll

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Rasterize paints a frame into an RGBA image of the frame's size.
func Rasterize(f Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, max(f.Width, 0), max(f.Height, 0)))
	for _, c := range f.Commands {
		fill(img, c)
	}
	return img
}

// PixelSpan returns the half-open pixel ranges [x0,x1) x [y0,y1) covered by
// r, clipped to the image. Edges are rounded to the nearest pixel boundary;
// a rectangle thinner than one pixel still covers one column or row.
func PixelSpan(r Rect, width, height int) (x0, x1, y0, y1 int) {
	x0, x1 = span(r.X, r.W)
	y0, y1 = span(r.Y, r.H)
	x0, x1 = max(x0, 0), min(x1, width)
	y0, y1 = max(y0, 0), min(y1, height)
	return x0, x1, y0, y1
}

func span(pos, size float64) (int, int) {
	if size <= 0 {
		p := int(math.Round(pos))
		return p, p
	}
	a := int(math.Round(pos))
	b := int(math.Round(pos + size))
	if b == a {
		b = a + 1
	}
	return a, b
}

func fill(img *image.RGBA, c Command) {
	b := img.Bounds()
	x0, x1, y0, y1 := PixelSpan(c.Rect, b.Dx(), b.Dy())
	if x0 >= x1 || y0 >= y1 {
		return
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			blend(img, x, y, c.Color, c.Alpha)
		}
	}
	if !c.Border {
		return
	}
	for x := x0; x < x1; x++ {
		blend(img, x, y0, Palette.NoteBorder, 1)
		blend(img, x, y1-1, Palette.NoteBorder, 1)
	}
	for y := y0; y < y1; y++ {
		blend(img, x0, y, Palette.NoteBorder, 1)
		blend(img, x1-1, y, Palette.NoteBorder, 1)
	}
}

func blend(img *image.RGBA, x, y int, src colorful.Color, alpha float64) {
	dst := toColorful(img.RGBAAt(x, y))
	out := dst.BlendRgb(src, math.Max(0, math.Min(1, alpha)))
	r, g, b := out.Clamped().RGB255()
	img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
}

func toColorful(c color.RGBA) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// ColorAt reads back a pixel as a colorful.Color
func ColorAt(img *image.RGBA, x, y int) colorful.Color {
	return toColorful(img.RGBAAt(x, y))
}
