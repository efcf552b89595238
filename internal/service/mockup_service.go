package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"

	"rimagic/api/internal/engine"
	"rimagic/api/internal/ids"
	"rimagic/api/internal/imaging"
	"rimagic/api/internal/storage"
)

// GenerateInput is a validated mockup request.
type GenerateInput struct {
	TemplateID  string
	DesignURL   string
	Placement   engine.Placement
	Format      imaging.Format
	JPEGQuality int
}

type GenerateResult struct {
	URL    string
	Width  int
	Height int
	Format imaging.Format
	Bytes  []byte
}

// MockupService drives one generation end to end: template lookup, design
// fetch, compositing on the worker pool, encoding, and artifact delivery.
type MockupService struct {
	templates  *engine.Store
	fetcher    *engine.Fetcher
	compositor *engine.Compositor
	pool       *engine.Pool
	artifacts  *storage.ArtifactStore
	log        zerolog.Logger
}

func NewMockupService(
	templates *engine.Store,
	fetcher *engine.Fetcher,
	pool *engine.Pool,
	artifacts *storage.ArtifactStore,
	log zerolog.Logger,
) *MockupService {
	return &MockupService{
		templates:  templates,
		fetcher:    fetcher,
		compositor: engine.NewCompositor(),
		pool:       pool,
		artifacts:  artifacts,
		log:        log,
	}
}

func (s *MockupService) Generate(ctx context.Context, in GenerateInput) (GenerateResult, error) {
	tpl, err := s.templates.Get(in.TemplateID)
	if err != nil {
		return GenerateResult{}, err
	}

	// Reject bad placements before paying for the design download.
	if err := in.Placement.Validate(); err != nil {
		return GenerateResult{}, err
	}

	design, err := s.fetcher.Fetch(ctx, in.DesignURL)
	if err != nil {
		return GenerateResult{}, err
	}

	var (
		encoded      []byte
		compositeErr error
	)
	err = s.pool.Do(ctx, func() {
		// The client may have gone away while this task sat in the queue.
		if ctx.Err() != nil {
			compositeErr = ctx.Err()
			return
		}
		out, err := s.compositor.Composite(tpl, design, in.Placement)
		if err != nil {
			compositeErr = err
			return
		}
		encoded, compositeErr = imaging.Encode(out, in.Format, in.JPEGQuality)
	})
	if err != nil {
		return GenerateResult{}, err
	}
	if compositeErr != nil {
		return GenerateResult{}, compositeErr
	}

	url, err := s.deliver(ctx, encoded, in.Format)
	if err != nil {
		return GenerateResult{}, err
	}

	return GenerateResult{
		URL:    url,
		Width:  tpl.Record.Width,
		Height: tpl.Record.Height,
		Format: in.Format,
		Bytes:  encoded,
	}, nil
}

// deliver uploads the artifact when an object store is configured, falling
// back to an inline data URL on upload failure or when running without one.
func (s *MockupService) deliver(ctx context.Context, encoded []byte, format imaging.Format) (string, error) {
	if s.artifacts != nil {
		name := fmt.Sprintf("%s.%s", ids.New(), format)
		url, err := s.artifacts.Put(ctx, name, encoded, format.ContentType())
		if err == nil {
			return url, nil
		}
		s.log.Warn().Err(err).Msg("artifact upload failed, returning data url")
	}
	return fmt.Sprintf("data:%s;base64,%s", format.ContentType(), base64.StdEncoding.EncodeToString(encoded)), nil
}
