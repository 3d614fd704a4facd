package colors

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHexRoundTrip(t *testing.T) {
	r, g, b := HexToRGB("#8BA4E8")
	assert.Equal(t, []int{0x8B, 0xA4, 0xE8}, []int{r, g, b})
	assert.Equal(t, "#8BA4E8", RGBToHex(r, g, b))
	assert.Equal(t, "#FF0000", RGBToHex(300, -4, 0))

	r, g, b = HexToRGB("not a color")
	assert.Equal(t, []int{255, 255, 255}, []int{r, g, b})

	r, _, _ = HexToRGB("00ff00")
	assert.Equal(t, 0, r)
}

func TestGenerateGradient(t *testing.T) {
	gradient := GenerateGradient("#000000", "#FFFFFF", 5)

	assert.Len(t, gradient, 5)
	assert.Equal(t, "#000000", gradient[0])
	assert.Equal(t, "#FFFFFF", gradient[4])
	for i := 1; i < len(gradient); i++ {
		assert.Greater(t, GetLightness(gradient[i]), GetLightness(gradient[i-1]))
	}

	assert.Len(t, GenerateGradient("#000000", "#FFFFFF", 0), 2)
}

func TestGenerateMultiGradient(t *testing.T) {
	gradient := GenerateMultiGradient([]string{"#FF0000", "#00FF00", "#0000FF"}, 10)

	assert.Len(t, gradient, 10)
	assert.Equal(t, "#FF0000", gradient[0])
	assert.Equal(t, "#0000FF", gradient[len(gradient)-1])

	assert.Equal(t, []string{"#123456"}, GenerateMultiGradient([]string{"#123456"}, 10))
	assert.Equal(t, []string{"#FFFFFF"}, GenerateMultiGradient(nil, 10))
}

func TestCalculateGradientSmoothness(t *testing.T) {
	same := CalculateGradientSmoothness("#336699", "#336699", 20)
	far := CalculateGradientSmoothness("#000000", "#FFFFFF", 20)

	assert.InDelta(t, 0, same, 0.001)
	assert.Greater(t, far, same)
	assert.Greater(t, CalculateGradientSmoothness("#000000", "#FFFFFF", 3), far)
}

func TestBlendAndAdjust(t *testing.T) {
	assert.Equal(t, "#000000", BlendColors("#000000", "#FFFFFF", -1))
	assert.Equal(t, "#FFFFFF", BlendColors("#000000", "#FFFFFF", 2))

	assert.Equal(t, "#404040", AdjustBrightness("#808080", 0.5))
	assert.Equal(t, "#FFFFFF", AdjustBrightness("#808080", 3))
	assert.Equal(t, "#808080", AddGlow("#808080", 0))

	gray := Desaturate("#FF0000", 1)
	r, g, b := HexToRGB(gray)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestSaturationBrightness(t *testing.T) {
	assert.InDelta(t, 1.0, Saturation("#FF0000"), 0.001)
	assert.InDelta(t, 0.0, Saturation("#777777"), 0.001)
	assert.InDelta(t, 0.5, Brightness("#800000"), 0.01)
}

func TestRenderGradientText(t *testing.T) {
	assert.Equal(t, "", RenderGradientText("", []string{"#FFFFFF"}, false))
	assert.Equal(t, "plain", RenderGradientText("plain", nil, false))

	out := RenderGradientText("hey", []string{"#FF0000", "#0000FF"}, true)
	assert.Contains(t, out, "h")
	assert.Contains(t, out, "y")
	assert.True(t, strings.Contains(out, "e"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", FormatDuration(-time.Second))
	assert.Equal(t, "0:07", FormatDuration(7900*time.Millisecond))
	assert.Equal(t, "3:35", FormatDuration(215*time.Second))
	assert.Equal(t, "1:02:03", FormatDuration(time.Hour+2*time.Minute+3*time.Second))
}
