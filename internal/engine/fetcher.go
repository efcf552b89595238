package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"rimagic/api/internal/imaging"
)

const maxDesignAxis = 8192

var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Fetcher downloads design images with hard limits on scheme, size,
// content type, decode dimensions and wall-clock time.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	timeout  time.Duration
}

func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
					return ErrInvalidURL
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		timeout:  timeout,
	}
}

// Fetch retrieves and decodes a design image. Every failure mode maps to one
// of the package's fetch errors so callers can translate them to responses.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*imaging.Image, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, ErrInvalidURL
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, ErrInvalidURL
	}
	req.Header.Set("Accept", "image/png, image/jpeg, image/webp")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, ErrFetchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{Code: resp.StatusCode}
	}

	declared := resp.Header.Get("Content-Type")
	if declared != "" {
		mediaType, _, err := mime.ParseMediaType(declared)
		if err != nil || !allowedContentTypes[mediaType] {
			return nil, ErrUnsupportedType
		}
	}

	body, err := readCapped(resp.Body, f.maxBytes)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, ErrTooLarge
		}
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, ErrFetchTimeout
		}
		return nil, fmt.Errorf("read design: %w", err)
	}

	// No declared type: fall back to magic-byte sniffing.
	if declared == "" && !allowedContentTypes[http.DetectContentType(body)] {
		return nil, ErrUnsupportedType
	}

	img, _, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	if img.W <= 0 || img.H <= 0 || img.W > maxDesignAxis || img.H > maxDesignAxis {
		return nil, ErrDesignTooLarge
	}
	return img, nil
}

func readCapped(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, ErrTooLarge
	}
	return data, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
