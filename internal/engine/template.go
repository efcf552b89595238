package engine

import (
	"rimagic/api/internal/imaging"
	"rimagic/api/internal/models"
)

// DisplacementEncoding selects how displacement map pixels are read.
type DisplacementEncoding string

const (
	// EncodingLuma reads luminance as vertical displacement only.
	EncodingLuma DisplacementEncoding = "luma"
	// EncodingRG reads red as horizontal and green as vertical displacement.
	EncodingRG DisplacementEncoding = "rg"
)

func ParseDisplacementEncoding(s string) DisplacementEncoding {
	if DisplacementEncoding(s) == EncodingRG {
		return EncodingRG
	}
	return EncodingLuma
}

// Template bundles catalog metadata with decoded pixel assets. Instances are
// built once by the store and shared read-only across requests; nothing may
// write to the buffers after construction.
type Template struct {
	Record models.TemplateRecord

	Base         *imaging.Image
	Displacement *imaging.Image
	Mask         *imaging.Image

	Encoding DisplacementEncoding
}

// Strength returns the displacement amplitude D in pixels. An unset
// per-template value falls back to 10% of the print-area width.
func (t *Template) Strength() float64 {
	if t.Record.DisplacementStrength > 0 {
		return t.Record.DisplacementStrength
	}
	return 0.1 * float64(t.Record.PrintArea.Width)
}

// Summary is the listing projection of a template.
type Summary struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	ProductType string           `json:"product_type"`
	Variant     string           `json:"variant"`
	Color       string           `json:"color"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	PrintArea   models.PrintArea `json:"print_area"`
}

func (t *Template) Summary() Summary {
	return Summary{
		ID:          t.Record.ID,
		Name:        t.Record.Name,
		ProductType: t.Record.ProductType,
		Variant:     t.Record.Variant,
		Color:       t.Record.Color,
		Width:       t.Record.Width,
		Height:      t.Record.Height,
		PrintArea:   t.Record.PrintArea,
	}
}
