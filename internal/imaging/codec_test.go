package imaging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatPNG},
		{in: "png", want: FormatPNG},
		{in: "jpeg", want: FormatJPEG},
		{in: "jpg", want: FormatJPEG},
		{in: "webp", want: FormatWebP},
		{in: "gif", wantErr: true},
		{in: "PNG", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrUnknownFormat, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", FormatPNG.ContentType())
	assert.Equal(t, "image/jpeg", FormatJPEG.ContentType())
	assert.Equal(t, "image/webp", FormatWebP.ContentType())
}

func testPattern() *Image {
	m := New(4, 3)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			m.Set(x, y, uint8(x*60), uint8(y*80), uint8((x+y)*30), 255)
		}
	}
	return m
}

func TestEncodePNGRoundTrip(t *testing.T) {
	src := testPattern()

	data, err := Encode(src, FormatPNG, 0)
	require.NoError(t, err)

	decoded, format, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)
	assert.Equal(t, src.W, decoded.W)
	assert.Equal(t, src.H, decoded.H)
	assert.Equal(t, src.Pix, decoded.Pix, "png is lossless")
}

func TestEncodePNGDeterministic(t *testing.T) {
	src := testPattern()

	first, err := Encode(src, FormatPNG, 0)
	require.NoError(t, err)
	second, err := Encode(src, FormatPNG, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncodeJPEGFlattensAlpha(t *testing.T) {
	src := New(2, 2)
	for i := 0; i < 4; i++ {
		src.Set(i%2, i/2, 255, 0, 0, 128)
	}

	data, err := Encode(src, FormatJPEG, 90)
	require.NoError(t, err)

	decoded, format, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, format)

	_, _, _, a := decoded.At(0, 0)
	assert.Equal(t, uint8(255), a, "jpeg output carries no alpha")
}

func TestEncodeWebP(t *testing.T) {
	src := testPattern()

	data, err := Encode(src, FormatWebP, 0)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, format, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatWebP, format)
	assert.Equal(t, src.W, decoded.W)
	assert.Equal(t, src.H, decoded.H)
}

func TestEncodeUnknownFormat(t *testing.T) {
	_, err := Encode(New(1, 1), Format("bmp"), 0)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFlattenOnWhite(t *testing.T) {
	src := New(1, 1)
	src.Set(0, 0, 0, 0, 0, 128)

	out := flattenOnWhite(src)
	r, g, b, a := out.At(0, 0)
	assert.Equal(t, uint8(127), r)
	assert.Equal(t, uint8(127), g)
	assert.Equal(t, uint8(127), b)
	assert.Equal(t, uint8(255), a)

	src.Set(0, 0, 10, 20, 30, 255)
	out = flattenOnWhite(src)
	r, g, b, _ = out.At(0, 0)
	assert.Equal(t, []uint8{10, 20, 30}, []uint8{r, g, b}, "opaque pixels pass through")
}
