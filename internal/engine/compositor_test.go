package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rimagic/api/internal/imaging"
	"rimagic/api/internal/models"
)

func solidImage(w, h int, r, g, b, a uint8) *imaging.Image {
	m := imaging.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Set(x, y, r, g, b, a)
		}
	}
	return m
}

func testTemplate(base *imaging.Image) *Template {
	return &Template{
		Record: models.TemplateRecord{
			ID:        "tee-white",
			Width:     base.W,
			Height:    base.H,
			PrintArea: models.PrintArea{X: 20, Y: 20, Width: 60, Height: 60},
		},
		Base:     base,
		Encoding: EncodingLuma,
	}
}

func TestCompositePlacesDesign(t *testing.T) {
	tpl := testTemplate(solidImage(100, 100, 255, 255, 255, 255))
	design := solidImage(30, 30, 255, 0, 0, 255)

	out, err := NewCompositor().Composite(tpl, design, Placement{Scale: 0.5})
	require.NoError(t, err)
	require.Equal(t, 100, out.W)
	require.Equal(t, 100, out.H)

	// Target rect is 30x30 centered on the print area: (35,35)..(64,64).
	r, g, b, a := out.At(50, 50)
	assert.Equal(t, []uint8{255, 0, 0, 255}, []uint8{r, g, b, a}, "design center is opaque red")

	r, _, _, _ = out.At(35, 35)
	assert.Equal(t, uint8(255), r)
	_, g, _, _ = out.At(35, 35)
	assert.Equal(t, uint8(0), g, "rect corner is design, not base")

	r, g, b, a = out.At(10, 10)
	assert.Equal(t, []uint8{255, 255, 255, 255}, []uint8{r, g, b, a}, "outside the rect the base is untouched")

	r, g, b, a = out.At(70, 70)
	assert.Equal(t, []uint8{255, 255, 255, 255}, []uint8{r, g, b, a})
}

func TestCompositeDeterministic(t *testing.T) {
	tpl := testTemplate(solidImage(100, 100, 200, 200, 200, 255))
	design := solidImage(40, 20, 0, 0, 255, 255)

	c := NewCompositor()
	first, err := c.Composite(tpl, design, Placement{Scale: 0.8, OffsetX: 0.1})
	require.NoError(t, err)
	second, err := c.Composite(tpl, design, Placement{Scale: 0.8, OffsetX: 0.1})
	require.NoError(t, err)

	assert.Equal(t, first.Pix, second.Pix)
}

func TestCompositeClipsToPrintArea(t *testing.T) {
	tpl := testTemplate(solidImage(100, 100, 255, 255, 255, 255))
	design := solidImage(60, 60, 255, 0, 0, 255)

	// Scale 1 with a positive offset pushes part of the design past the
	// print area's right edge; those pixels must stay base.
	out, err := NewCompositor().Composite(tpl, design, Placement{Scale: 1, OffsetX: 0.5})
	require.NoError(t, err)

	// Print area ends at x=79; anything right of it keeps the base.
	r, g, b, _ := out.At(85, 50)
	assert.Equal(t, []uint8{255, 255, 255}, []uint8{r, g, b})

	_, g, _, _ = out.At(75, 50)
	assert.Equal(t, uint8(0), g, "inside the print area the design shows")
}

func TestCompositeNeutralDisplacementIsIdentity(t *testing.T) {
	base := solidImage(100, 100, 255, 255, 255, 255)
	design := solidImage(30, 30, 0, 128, 64, 255)
	placement := Placement{Scale: 0.5}

	plain := testTemplate(base)
	warped := testTemplate(base)
	warped.Displacement = solidImage(100, 100, 128, 128, 128, 255)

	c := NewCompositor()
	a, err := c.Composite(plain, design, placement)
	require.NoError(t, err)
	b, err := c.Composite(warped, design, placement)
	require.NoError(t, err)

	assert.Equal(t, a.Pix, b.Pix, "a 128-valued map displaces nothing")
}

func TestCompositeNeutralDisplacementRG(t *testing.T) {
	base := solidImage(100, 100, 255, 255, 255, 255)
	design := solidImage(30, 30, 0, 128, 64, 255)
	placement := Placement{Scale: 0.5}

	plain := testTemplate(base)
	warped := testTemplate(base)
	warped.Displacement = solidImage(100, 100, 128, 128, 0, 255)
	warped.Encoding = EncodingRG

	c := NewCompositor()
	a, err := c.Composite(plain, design, placement)
	require.NoError(t, err)
	b, err := c.Composite(warped, design, placement)
	require.NoError(t, err)

	assert.Equal(t, a.Pix, b.Pix)
}

func TestCompositeDisplacementShiftsSamples(t *testing.T) {
	tpl := testTemplate(solidImage(100, 100, 255, 255, 255, 255))
	tpl.Record.DisplacementStrength = 5
	// All-white map: luma 255 -> gy = +D, samples pull from 5px down.
	tpl.Displacement = solidImage(100, 100, 255, 255, 255, 255)

	// Design: top half red, bottom half blue.
	design := imaging.New(30, 30)
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			if y < 15 {
				design.Set(x, y, 255, 0, 0, 255)
			} else {
				design.Set(x, y, 0, 0, 255, 255)
			}
		}
	}

	out, err := NewCompositor().Composite(tpl, design, Placement{Scale: 0.5})
	require.NoError(t, err)

	// Rect spans y=35..64 with the color boundary at sy=15 (y=50). With
	// gy=+5 every output row samples 5 rows lower, moving the visible
	// boundary up to y=45.
	_, _, b, _ := out.At(50, 46)
	assert.Equal(t, uint8(255), b, "boundary moved up: blue above the unwarped split")

	r, _, _, _ := out.At(50, 44)
	assert.Equal(t, uint8(255), r, "still red above the shifted boundary")

	// Rows at the bottom of the rect would sample past the design edge and
	// are skipped, leaving base pixels.
	r, g, b2, _ := out.At(50, 62)
	assert.Equal(t, []uint8{255, 255, 255}, []uint8{r, g, b2})
}

func TestCompositeMask(t *testing.T) {
	tpl := testTemplate(solidImage(100, 100, 255, 255, 255, 255))
	design := solidImage(30, 30, 255, 0, 0, 255)

	t.Run("black mask suppresses everything", func(t *testing.T) {
		masked := *tpl
		masked.Mask = solidImage(100, 100, 0, 0, 0, 255)

		out, err := NewCompositor().Composite(&masked, design, Placement{Scale: 0.5})
		require.NoError(t, err)
		assert.Equal(t, tpl.Base.Pix, out.Pix)
	})

	t.Run("gray mask halves coverage", func(t *testing.T) {
		masked := *tpl
		masked.Mask = solidImage(100, 100, 128, 128, 128, 255)

		out, err := NewCompositor().Composite(&masked, design, Placement{Scale: 0.5})
		require.NoError(t, err)

		r, g, _, _ := out.At(50, 50)
		assert.Greater(t, r, uint8(200), "red dominates")
		assert.InDelta(t, 127, int(g), 3, "half the base white shows through")
	})
}

func TestCompositeTransparentDesignLeavesBase(t *testing.T) {
	tpl := testTemplate(solidImage(100, 100, 9, 8, 7, 255))
	design := solidImage(30, 30, 255, 0, 0, 0)

	out, err := NewCompositor().Composite(tpl, design, Placement{Scale: 0.5})
	require.NoError(t, err)
	assert.Equal(t, tpl.Base.Pix, out.Pix)
}

func TestCompositeStrengthDefault(t *testing.T) {
	tpl := testTemplate(solidImage(100, 100, 0, 0, 0, 255))
	assert.InDelta(t, 6.0, tpl.Strength(), 1e-9, "a tenth of the 60px print area")

	tpl.Record.DisplacementStrength = 12.5
	assert.InDelta(t, 12.5, tpl.Strength(), 1e-9)
}

func TestCompositeInvalidPlacement(t *testing.T) {
	tpl := testTemplate(solidImage(100, 100, 0, 0, 0, 255))
	design := solidImage(10, 10, 255, 0, 0, 255)

	_, err := NewCompositor().Composite(tpl, design, Placement{Scale: 0})
	assert.ErrorIs(t, err, ErrInvalidPlacement)
}
