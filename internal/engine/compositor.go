package engine

import (
	"math"

	"rimagic/api/internal/imaging"
	"rimagic/api/internal/models"
)

// Compositor renders a design onto a template following the fabric geometry
// encoded in the template's displacement map.
//
// The pipeline is deterministic: identical template, design bytes and
// placement always produce a byte-identical output buffer.
type Compositor struct{}

func NewCompositor() *Compositor {
	return &Compositor{}
}

// Composite runs placement, displacement warp and alpha blending, returning
// an image with the template's dimensions. The template's buffers are only
// read; the result is freshly allocated.
func (c *Compositor) Composite(tpl *Template, design *imaging.Image, placement Placement) (*imaging.Image, error) {
	rect, err := placement.TargetRect(design.W, design.H, tpl.Record.PrintArea)
	if err != nil {
		return nil, err
	}

	resized := design.Resize(rect.W, rect.H)

	out := imaging.New(tpl.Record.Width, tpl.Record.Height)
	copy(out.Pix, tpl.Base.Pix)

	// Displacement can pull samples from up to D pixels away, so the warp
	// only needs to visit the target rectangle padded by that reach.
	margin := 0
	if tpl.Displacement != nil {
		margin = int(math.Ceil(tpl.Strength())) + 1
	}
	uMin := clamp(rect.X-margin, 0, tpl.Record.Width)
	uMax := clamp(rect.X+rect.W+margin, 0, tpl.Record.Width)
	vMin := clamp(rect.Y-margin, 0, tpl.Record.Height)
	vMax := clamp(rect.Y+rect.H+margin, 0, tpl.Record.Height)

	strength := tpl.Strength()
	area := tpl.Record.PrintArea

	for v := vMin; v < vMax; v++ {
		for u := uMin; u < uMax; u++ {
			sx := float64(u - rect.X)
			sy := float64(v - rect.Y)

			if tpl.Displacement != nil {
				gx, gy := c.displacementAt(tpl, u, v, strength)
				sx += gx
				sy += gy
			}

			if sx < 0 || sy < 0 || sx > float64(rect.W-1) || sy > float64(rect.H-1) {
				continue
			}

			r, g, b, a := resized.Bilinear(sx, sy)
			if a == 0 {
				continue
			}

			a = c.maskAlpha(tpl, u, v, area, a)
			if a == 0 {
				continue
			}

			blendOver(out, u, v, r, g, b, a)
		}
	}

	return out, nil
}

// displacementAt reads the warp vector at a template pixel. Channel values
// map linearly from [0,255] to [-D, +D] with 128 as the zero point.
func (c *Compositor) displacementAt(tpl *Template, u, v int, strength float64) (gx, gy float64) {
	switch tpl.Encoding {
	case EncodingRG:
		r, g, _, _ := tpl.Displacement.At(u, v)
		gx = (float64(r) - 128) / 128 * strength
		gy = (float64(g) - 128) / 128 * strength
	default:
		luma := tpl.Displacement.Luma(u, v)
		gy = (float64(luma) - 128) / 128 * strength
	}
	return gx, gy
}

// maskAlpha applies template mask coverage to a sampled alpha value. Without
// an explicit mask, coverage is full inside the print area and zero outside.
func (c *Compositor) maskAlpha(tpl *Template, u, v int, area models.PrintArea, a uint8) uint8 {
	if tpl.Mask == nil {
		if area.Contains(u, v) {
			return a
		}
		return 0
	}
	m := uint32(tpl.Mask.Luma(u, v))
	return uint8((uint32(a)*m + 127) / 255)
}

// blendOver writes src OVER dst at (x, y) using non-premultiplied source-over.
func blendOver(dst *imaging.Image, x, y int, r, g, b, a uint8) {
	br, bg, bb, ba := dst.At(x, y)

	af := float64(a) / 255
	inv := 1 - af

	outR := uint8(float64(r)*af + float64(br)*inv + 0.5)
	outG := uint8(float64(g)*af + float64(bg)*inv + 0.5)
	outB := uint8(float64(b)*af + float64(bb)*inv + 0.5)
	outA := uint8(math.Min(255, float64(ba)+float64(a)*(1-float64(ba)/255)+0.5))

	dst.Set(x, y, outR, outG, outB, outA)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
