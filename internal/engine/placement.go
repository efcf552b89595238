package engine

import (
	"math"

	"rimagic/api/internal/models"
)

// Placement positions a design inside a template's print area.
// Scale is relative to print-area width; offsets are fractions of print-area
// width/height measured from its center.
type Placement struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// Validate checks the raw field ranges.
func (p Placement) Validate() error {
	if !(p.Scale > 0 && p.Scale <= 2) {
		return ErrInvalidPlacement
	}
	if p.OffsetX < -1 || p.OffsetX > 1 || p.OffsetY < -1 || p.OffsetY > 1 {
		return ErrInvalidPlacement
	}
	return nil
}

// Rect is a target rectangle in template pixel space.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) intersects(p models.PrintArea) bool {
	return r.X < p.X+p.Width && r.X+r.W > p.X &&
		r.Y < p.Y+p.Height && r.Y+r.H > p.Y
}

// TargetRect computes where the resampled design lands on the template.
// Width follows scale; height preserves the design's aspect ratio. The
// rectangle must intersect the print area or the placement is rejected.
func (p Placement) TargetRect(designW, designH int, area models.PrintArea) (Rect, error) {
	if err := p.Validate(); err != nil {
		return Rect{}, err
	}
	if designW <= 0 || designH <= 0 {
		return Rect{}, ErrInvalidPlacement
	}

	targetW := int(math.Round(float64(area.Width) * p.Scale))
	if targetW <= 0 {
		return Rect{}, ErrInvalidPlacement
	}
	targetH := int(math.Round(float64(designH) * float64(targetW) / float64(designW)))
	if targetH <= 0 {
		return Rect{}, ErrInvalidPlacement
	}

	centerX := float64(area.X) + float64(area.Width)/2 + p.OffsetX*float64(area.Width)
	centerY := float64(area.Y) + float64(area.Height)/2 + p.OffsetY*float64(area.Height)

	rect := Rect{
		X: int(math.Round(centerX - float64(targetW)/2)),
		Y: int(math.Round(centerY - float64(targetH)/2)),
		W: targetW,
		H: targetH,
	}

	if !rect.intersects(area) {
		return Rect{}, ErrInvalidPlacement
	}
	return rect, nil
}
