// Package imaging holds the pixel-level primitives for the compositor:
// a flat RGBA8 buffer, bilinear sampling with edge clamping, and
// aspect-preserving resampling.
package imaging

import (
	"image"
	"image/color"
)

// Image is a non-premultiplied sRGB RGBA8 pixel grid.
// Invariant: len(Pix) == 4*W*H.
type Image struct {
	W, H int
	Pix  []uint8
}

func New(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]uint8, 4*w*h)}
}

// FromImage converts any decoded image into a non-premultiplied RGBA buffer.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	out := New(w, h)
	if nrgba, ok := src.(*image.NRGBA); ok && nrgba.Stride == 4*w {
		copy(out.Pix, nrgba.Pix[:4*w*h])
		return out
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			out.Pix[i] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = c.A
			i += 4
		}
	}
	return out
}

// ToNRGBA exposes the buffer as a stdlib image for encoding. The pixel data
// is shared, not copied.
func (m *Image) ToNRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    m.Pix,
		Stride: 4 * m.W,
		Rect:   image.Rect(0, 0, m.W, m.H),
	}
}

func (m *Image) At(x, y int) (r, g, b, a uint8) {
	i := 4 * (y*m.W + x)
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3]
}

func (m *Image) Set(x, y int, r, g, b, a uint8) {
	i := 4 * (y*m.W + x)
	m.Pix[i] = r
	m.Pix[i+1] = g
	m.Pix[i+2] = b
	m.Pix[i+3] = a
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Bilinear samples the image at fractional coordinates with edge clamping.
func (m *Image) Bilinear(x, y float64) (r, g, b, a uint8) {
	if m.W == 0 || m.H == 0 {
		return 0, 0, 0, 0
	}

	if x < 0 {
		x = 0
	} else if max := float64(m.W - 1); x > max {
		x = max
	}
	if y < 0 {
		y = 0
	} else if max := float64(m.H - 1); y > max {
		y = max
	}

	x0 := int(x)
	y0 := int(y)
	x1 := clampInt(x0+1, 0, m.W-1)
	y1 := clampInt(y0+1, 0, m.H-1)

	dx := x - float64(x0)
	dy := y - float64(y0)

	i00 := 4 * (y0*m.W + x0)
	i10 := 4 * (y0*m.W + x1)
	i01 := 4 * (y1*m.W + x0)
	i11 := 4 * (y1*m.W + x1)

	var out [4]uint8
	for c := 0; c < 4; c++ {
		v := float64(m.Pix[i00+c])*(1-dx)*(1-dy) +
			float64(m.Pix[i10+c])*dx*(1-dy) +
			float64(m.Pix[i01+c])*(1-dx)*dy +
			float64(m.Pix[i11+c])*dx*dy
		out[c] = uint8(v + 0.5)
	}
	return out[0], out[1], out[2], out[3]
}

// Resize resamples the image to w x h using bilinear interpolation.
// The caller is responsible for choosing dimensions that preserve aspect.
func (m *Image) Resize(w, h int) *Image {
	if w <= 0 || h <= 0 {
		return New(0, 0)
	}
	if w == m.W && h == m.H {
		out := New(w, h)
		copy(out.Pix, m.Pix)
		return out
	}

	out := New(w, h)
	xRatio := float64(m.W) / float64(w)
	yRatio := float64(m.H) / float64(h)

	for y := 0; y < h; y++ {
		// Sample at pixel centers to keep edges symmetric.
		sy := (float64(y)+0.5)*yRatio - 0.5
		for x := 0; x < w; x++ {
			sx := (float64(x)+0.5)*xRatio - 0.5
			r, g, b, a := m.Bilinear(sx, sy)
			out.Set(x, y, r, g, b, a)
		}
	}
	return out
}

// Luma returns the perceptual luminance of the pixel at (x, y).
func (m *Image) Luma(x, y int) uint8 {
	r, g, b, _ := m.At(x, y)
	return uint8(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b) + 0.5)
}
