package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/webp" // register webp with image.Decode
)

// Format identifies a supported pixel encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

var ErrUnknownFormat = errors.New("unknown image format")

// ParseFormat maps a request option string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// Decode reads a PNG, JPEG, or WebP stream into an RGBA buffer.
func Decode(r io.Reader) (*Image, Format, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		return nil, "", err
	}

	switch name {
	case "png":
		return FromImage(img), FormatPNG, nil
	case "jpeg":
		return FromImage(img), FormatJPEG, nil
	case "webp":
		return FromImage(img), FormatWebP, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Encode serializes the image in the requested format. Output is
// deterministic for identical input: none of the three encoders write
// timestamps or ancillary metadata.
func Encode(m *Image, format Format, jpegQuality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		if err := enc.Encode(&buf, m.ToNRGBA()); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case FormatJPEG:
		if jpegQuality <= 0 || jpegQuality > 100 {
			jpegQuality = 85
		}
		// JPEG has no alpha channel; composite onto white first.
		if err := jpeg.Encode(&buf, flattenOnWhite(m).ToNRGBA(), &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case FormatWebP:
		if err := nativewebp.Encode(&buf, m.ToNRGBA(), nil); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return buf.Bytes(), nil
}

func flattenOnWhite(m *Image) *Image {
	out := New(m.W, m.H)
	for i := 0; i < len(m.Pix); i += 4 {
		a := uint32(m.Pix[i+3])
		out.Pix[i] = uint8((uint32(m.Pix[i])*a + 255*(255-a) + 127) / 255)
		out.Pix[i+1] = uint8((uint32(m.Pix[i+1])*a + 255*(255-a) + 127) / 255)
		out.Pix[i+2] = uint8((uint32(m.Pix[i+2])*a + 255*(255-a) + 127) / 255)
		out.Pix[i+3] = 255
	}
	return out
}
