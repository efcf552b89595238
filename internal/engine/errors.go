package engine

import (
	"errors"
	"fmt"
)

// Fetch errors. The user controls the design URL, so all of these map to
// 4xx responses.
var (
	ErrInvalidURL      = errors.New("design url is not a valid http or https url")
	ErrFetchTimeout    = errors.New("design fetch timed out")
	ErrTooLarge        = errors.New("design exceeds the maximum download size")
	ErrUnsupportedType = errors.New("design content type is not png, jpeg or webp")
	ErrDecodeFailed    = errors.New("design image could not be decoded")
)

// HTTPStatusError reports a non-2xx response from the design host.
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("design host returned HTTP %d", e.Code)
}

// Compositor errors.
var (
	ErrInvalidPlacement    = errors.New("placement puts the design outside the print area")
	ErrDesignTooLarge      = errors.New("design dimensions exceed the 8192px limit")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrTemplateUnavailable = errors.New("template assets are unavailable")
)

// ErrBacklogFull is returned when the compositing queue is saturated.
var ErrBacklogFull = errors.New("compositing backlog is full")
