package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rimagic/api/internal/models"
)

// TemplateRepository reads the template catalog table. It implements
// engine.Catalog; the engine owns asset decoding and caching.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

func (r *TemplateRepository) ActiveTemplates(ctx context.Context) ([]models.TemplateRecord, error) {
	const query = `
		SELECT id, name, product_type, variant, color,
		       width, height,
		       print_area_x, print_area_y, print_area_width, print_area_height,
		       base_path, displacement_path, mask_path,
		       displacement_encoding, displacement_strength,
		       is_active, created_at, updated_at
		FROM templates
		WHERE is_active = true
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []models.TemplateRecord
	for rows.Next() {
		var (
			rec          models.TemplateRecord
			displacement *string
			mask         *string
			strength     *float64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Name,
			&rec.ProductType,
			&rec.Variant,
			&rec.Color,
			&rec.Width,
			&rec.Height,
			&rec.PrintArea.X,
			&rec.PrintArea.Y,
			&rec.PrintArea.Width,
			&rec.PrintArea.Height,
			&rec.BasePath,
			&displacement,
			&mask,
			&rec.DisplacementEncoding,
			&strength,
			&rec.IsActive,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if displacement != nil {
			rec.DisplacementPath = *displacement
		}
		if mask != nil {
			rec.MaskPath = *mask
		}
		if strength != nil {
			rec.DisplacementStrength = *strength
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
