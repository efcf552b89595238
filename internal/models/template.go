package models

import "time"

// PrintArea is the axis-aligned placement rectangle in template pixel space.
type PrintArea struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (p PrintArea) Contains(x, y int) bool {
	return x >= p.X && x < p.X+p.Width && y >= p.Y && y < p.Y+p.Height
}

// TemplateRecord is a row of the template catalog table. Asset paths point
// into the templates directory; decoding happens in the engine store.
type TemplateRecord struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	ProductType          string    `json:"product_type"`
	Variant              string    `json:"variant"`
	Color                string    `json:"color"`
	Width                int       `json:"width"`
	Height               int       `json:"height"`
	PrintArea            PrintArea `json:"print_area"`
	BasePath             string    `json:"-"`
	DisplacementPath     string    `json:"-"`
	MaskPath             string    `json:"-"`
	DisplacementEncoding string    `json:"displacement_encoding"`
	DisplacementStrength float64   `json:"displacement_strength"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
