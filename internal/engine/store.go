package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"rimagic/api/internal/imaging"
	"rimagic/api/internal/models"
)

// Catalog is the source of template metadata rows, backed by the template
// catalog table in production.
type Catalog interface {
	ActiveTemplates(ctx context.Context) ([]models.TemplateRecord, error)
}

// Store indexes decoded templates by id. It is populated once at startup and
// read-only afterwards, so lookups need no locking.
type Store struct {
	basePath  string
	catalog   Catalog
	log       zerolog.Logger
	templates map[string]*Template
	order     []string
}

func NewStore(basePath string, catalog Catalog, log zerolog.Logger) *Store {
	return &Store{
		basePath:  basePath,
		catalog:   catalog,
		log:       log,
		templates: make(map[string]*Template),
	}
}

// LoadAll reads the catalog and decodes every active template's assets.
// A template whose assets fail to decode is logged and skipped; startup
// continues with the rest.
func (s *Store) LoadAll(ctx context.Context) error {
	records, err := s.catalog.ActiveTemplates(ctx)
	if err != nil {
		return fmt.Errorf("read template catalog: %w", err)
	}

	for _, rec := range records {
		tpl, err := s.loadTemplate(rec)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("template_id", rec.ID).
				Msg("template unavailable")
			continue
		}
		s.templates[rec.ID] = tpl
		s.order = append(s.order, rec.ID)
	}
	sort.Strings(s.order)

	s.log.Info().
		Int("loaded", len(s.templates)).
		Int("catalog", len(records)).
		Msg("templates loaded")
	return nil
}

func (s *Store) loadTemplate(rec models.TemplateRecord) (*Template, error) {
	base, err := s.decodeAsset(rec.BasePath)
	if err != nil {
		return nil, fmt.Errorf("base image: %w", err)
	}
	if base.W != rec.Width || base.H != rec.Height {
		return nil, fmt.Errorf("base image is %dx%d, catalog says %dx%d",
			base.W, base.H, rec.Width, rec.Height)
	}

	if err := validatePrintArea(rec); err != nil {
		return nil, err
	}

	var displacement *imaging.Image
	if rec.DisplacementPath != "" {
		displacement, err = s.decodeAsset(rec.DisplacementPath)
		if err != nil {
			return nil, fmt.Errorf("displacement map: %w", err)
		}
		if displacement.W != rec.Width || displacement.H != rec.Height {
			return nil, fmt.Errorf("displacement map is %dx%d, template is %dx%d",
				displacement.W, displacement.H, rec.Width, rec.Height)
		}
	}

	var mask *imaging.Image
	if rec.MaskPath != "" {
		mask, err = s.decodeAsset(rec.MaskPath)
		if err != nil {
			return nil, fmt.Errorf("mask: %w", err)
		}
		if mask.W != rec.Width || mask.H != rec.Height {
			return nil, fmt.Errorf("mask is %dx%d, template is %dx%d",
				mask.W, mask.H, rec.Width, rec.Height)
		}
	}

	return &Template{
		Record:       rec,
		Base:         base,
		Displacement: displacement,
		Mask:         mask,
		Encoding:     ParseDisplacementEncoding(rec.DisplacementEncoding),
	}, nil
}

func validatePrintArea(rec models.TemplateRecord) error {
	p := rec.PrintArea
	if p.Width <= 0 || p.Height <= 0 ||
		p.X < 0 || p.Y < 0 ||
		p.X+p.Width > rec.Width || p.Y+p.Height > rec.Height {
		return fmt.Errorf("print area %+v does not fit %dx%d template", p, rec.Width, rec.Height)
	}
	return nil
}

func (s *Store) decodeAsset(relPath string) (*imaging.Image, error) {
	f, err := os.Open(filepath.Join(s.basePath, filepath.Clean(relPath)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", relPath, err)
	}
	return img, nil
}

// Get returns the template for id, or ErrTemplateNotFound.
func (s *Store) Get(id string) (*Template, error) {
	tpl, ok := s.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return tpl, nil
}

// List returns summaries of all loaded templates ordered by id.
func (s *Store) List() []Summary {
	out := make([]Summary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.templates[id].Summary())
	}
	return out
}

// Count reports how many templates loaded successfully.
func (s *Store) Count() int {
	return len(s.templates)
}
