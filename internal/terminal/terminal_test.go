package terminal

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestDetect(t *testing.T) {
	caps := Detect(env(map[string]string{"TERM_PROGRAM": "WezTerm", "COLORTERM": "truecolor"}), false)
	assert.False(t, caps.KittyGraphics)
	assert.True(t, caps.TrueColor)
	assert.Equal(t, "WezTerm", caps.TermProgram)

	caps = Detect(env(nil), true)
	assert.True(t, caps.KittyGraphics)
	assert.False(t, caps.TrueColor)
	assert.Equal(t, "kitty", caps.TermProgram)
}

func TestReset(t *testing.T) {
	var buf bytes.Buffer
	Reset(&buf)

	assert.True(t, strings.HasPrefix(buf.String(), "\033[?25h"))
	assert.Contains(t, buf.String(), "\033[?1049l")
}

func TestEncodeKittyImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 8), B: 128, A: 255})
		}
	}

	out, err := EncodeKittyImage(img, 12, 6)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "\x1b_Ga=T,f=100,c=12,r=6,"))
	assert.True(t, strings.HasSuffix(out, "\x1b\\"))
}

func TestEncodeKittyImage_Empty(t *testing.T) {
	_, err := EncodeKittyImage(nil, 12, 6)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = EncodeKittyImage(image.NewRGBA(image.Rect(0, 0, 0, 0)), 12, 6)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = EncodeKittyImage(image.NewRGBA(image.Rect(0, 0, 4, 4)), 0, 6)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestFitSize(t *testing.T) {
	w, h := fitSize(200, 100, 120, 120)
	assert.Equal(t, 120, w)
	assert.Equal(t, 60, h)

	w, h = fitSize(100, 400, 120, 120)
	assert.Equal(t, 30, w)
	assert.Equal(t, 120, h)

	w, h = fitSize(1000, 1, 120, 120)
	assert.Equal(t, 120, w)
	assert.Equal(t, minImagePx, h)
}

func TestKittyChunks(t *testing.T) {
	payload := strings.Repeat("A", kittyChunkSize*2+10)

	out := kittyChunks(payload, 4, 2)

	assert.Equal(t, 3, strings.Count(out, "\x1b_G"))
	assert.Contains(t, out, "c=4,r=2,m=1;")
	assert.Contains(t, out, "\x1b_Gm=1;")
	assert.Contains(t, out, "\x1b_Gm=0;")
}
