package engine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func serveBytes(contentType string, body []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}))
}

func TestFetchSuccess(t *testing.T) {
	srv := serveBytes("image/png", pngBytes(t, 3, 2, color.NRGBA{R: 255, A: 255}))
	defer srv.Close()

	f := NewFetcher(2*time.Second, 1<<20)
	img, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 3, img.W)
	assert.Equal(t, 2, img.H)

	r, _, _, a := img.At(0, 0)
	assert.Equal(t, uint8(255), r)
	assert.Equal(t, uint8(255), a)
}

func TestFetchInvalidURL(t *testing.T) {
	f := NewFetcher(time.Second, 1<<20)

	for _, raw := range []string{
		"",
		"not a url",
		"ftp://example.com/design.png",
		"/relative/path.png",
		"https://",
	} {
		_, err := f.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestFetchHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, 1<<20)
	_, err := f.Fetch(context.Background(), srv.URL)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestFetchUnsupportedContentType(t *testing.T) {
	srv := serveBytes("text/html; charset=utf-8", []byte("<html></html>"))
	defer srv.Close()

	f := NewFetcher(time.Second, 1<<20)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

// serveUndeclared writes body without any Content-Type header, suppressing
// net/http's own sniffing.
func serveUndeclared(body []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write(body)
	}))
}

func TestFetchMissingContentType(t *testing.T) {
	t.Run("image bytes are sniffed and accepted", func(t *testing.T) {
		srv := serveUndeclared(pngBytes(t, 3, 2, color.NRGBA{G: 255, A: 255}))
		defer srv.Close()

		f := NewFetcher(time.Second, 1<<20)
		img, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, 3, img.W)
	})

	t.Run("non-image bytes are rejected before decode", func(t *testing.T) {
		srv := serveUndeclared([]byte("<html><body>not an image</body></html>"))
		defer srv.Close()

		f := NewFetcher(time.Second, 1<<20)
		_, err := f.Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}

func TestFetchTooLarge(t *testing.T) {
	srv := serveBytes("image/png", pngBytes(t, 64, 64, color.NRGBA{R: 1, G: 2, B: 3, A: 255}))
	defer srv.Close()

	f := NewFetcher(time.Second, 16)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetchDecodeFailure(t *testing.T) {
	srv := serveBytes("image/png", []byte("these are not png bytes"))
	defer srv.Close()

	f := NewFetcher(time.Second, 1<<20)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestFetchDimensionCap(t *testing.T) {
	srv := serveBytes("image/png", pngBytes(t, maxDesignAxis+1, 1, color.NRGBA{A: 255}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 16<<20)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrDesignTooLarge)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	f := NewFetcher(50*time.Millisecond, 1<<20)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrFetchTimeout)
}
