package artwork

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicdeck.dev/musicdeck/internal/colors"
)

func stripes() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 60, 60))
	bands := []color.RGBA{
		{R: 220, G: 40, B: 40, A: 255},
		{R: 40, G: 180, B: 60, A: 255},
		{R: 50, G: 70, B: 210, A: 255},
		{R: 230, G: 200, B: 40, A: 255},
		{R: 20, G: 20, B: 20, A: 255},
	}
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, bands[x/12])
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	img, err := Decode(encodePNG(t, stripes()))
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrNoArtwork)

	_, err = Decode([]byte("nope"))
	assert.Error(t, err)
}

func TestFetch_HTTP(t *testing.T) {
	data := encodePNG(t, stripes())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer server.Close()

	img, err := Fetch(context.Background(), server.URL+"/cover.png")
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dy())

	_, err = Fetch(context.Background(), server.URL+"/missing.png")
	assert.ErrorContains(t, err, "status 404")
}

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, stripes()), 0644))

	img, err := Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestFetch_Invalid(t *testing.T) {
	_, err := Fetch(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoArtwork)

	_, err = Fetch(context.Background(), "ftp://example.com/a.png")
	assert.ErrorContains(t, err, "unsupported")
}

func TestExtractPalette(t *testing.T) {
	palette := ExtractPalette(stripes())

	require.NotNil(t, palette)
	assert.Len(t, palette.Gradient, gradientSteps)
	assert.NotEmpty(t, palette.GradientInfo)
	for _, hex := range []string{palette.Primary, palette.Secondary, palette.Accent} {
		assert.Regexp(t, `^#[0-9A-F]{6}$`, hex)
	}
}

func TestExtractPalette_NilUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultPalette(), ExtractPalette(nil))
}

func TestRenderHalfBlockArt(t *testing.T) {
	lines := RenderHalfBlockArt(stripes(), 10, 4)
	assert.Len(t, lines, 4)
	for _, line := range lines {
		assert.NotEmpty(t, line)
	}

	assert.Nil(t, RenderHalfBlockArt(nil, 10, 4))
	assert.Nil(t, RenderHalfBlockArt(stripes(), 2, 4))
}

func TestBoostColor(t *testing.T) {
	dark := boostColor(candidate{hex: "#202020", brightness: 0.125})
	assert.Greater(t, colors.Brightness(dark), 0.125)

	black := boostColor(candidate{hex: "#000000", brightness: 0})
	assert.Equal(t, "#000000", black)
}
