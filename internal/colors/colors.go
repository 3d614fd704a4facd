// Package colors does the palette math for the viewer on top of go-colorful.
// Colors travel as "#RRGGBB" strings since that is what lipgloss takes.
package colors

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var white = colorful.Color{R: 1, G: 1, B: 1}

// parse falls back to white for anything that is not a hex color.
func parse(hex string) colorful.Color {
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return white
	}
	return c
}

func format(c colorful.Color) string {
	return strings.ToUpper(c.Clamped().Hex())
}

func HexToRGB(hex string) (int, int, int) {
	r, g, b := parse(hex).RGB255()
	return int(r), int(g), int(b)
}

func RGBToHex(r int, g int, b int) string {
	return fmt.Sprintf("#%02X%02X%02X", clampInt(r, 0, 255), clampInt(g, 0, 255), clampInt(b, 0, 255))
}

func clampInt(val int, lo int, hi int) int {
	return max(lo, min(hi, val))
}

// GenerateGradient interpolates in HCL space. Far apart colors get an eased
// curve so the middle of the gradient does not muddy.
func GenerateGradient(startHex string, endHex string, steps int) []string {
	if steps < 2 {
		steps = 2
	}

	start := parse(startHex)
	end := parse(endHex)
	needsSmoothing := start.DistanceLab(end) > 0.5

	gradient := make([]string, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		if needsSmoothing {
			t = smoothStep(smoothStep(t))
		}
		gradient[i] = format(start.BlendHcl(end, t))
	}

	return gradient
}

func GenerateMultiGradient(stops []string, steps int) []string {
	if len(stops) < 2 || steps < 2 {
		if len(stops) >= 1 {
			return []string{stops[0]}
		}
		return []string{"#FFFFFF"}
	}

	gradient := make([]string, 0, steps)
	segments := len(stops) - 1
	stepsPerSegment := steps / segments

	for i := 0; i < segments; i++ {
		segSteps := stepsPerSegment
		if i == segments-1 {
			segSteps = steps - len(gradient)
		}
		segGrad := GenerateGradient(stops[i], stops[i+1], segSteps+1)
		if i == 0 {
			gradient = append(gradient, segGrad...)
		} else {
			gradient = append(gradient, segGrad[1:]...)
		}
	}

	return gradient
}

// CalculateGradientSmoothness returns the largest Lab distance (scaled to
// 0-100) between neighbouring gradient steps. Lower is smoother.
func CalculateGradientSmoothness(startHex string, endHex string, steps int) float64 {
	gradient := GenerateGradient(startHex, endHex, steps)

	maxJump := 0.0
	for i := 1; i < len(gradient); i++ {
		jump := parse(gradient[i-1]).DistanceLab(parse(gradient[i])) * 100
		maxJump = math.Max(maxJump, jump)
	}

	return maxJump
}

// GetLightness returns perceived lightness on a 0-100 scale.
func GetLightness(hex string) float64 {
	_, _, l := parse(hex).Hcl()
	return l * 100
}

func BlendColors(hex1 string, hex2 string, t float64) string {
	return format(parse(hex1).BlendHcl(parse(hex2), clampFloat(t, 0, 1)))
}

func AdjustBrightness(hex string, factor float64) string {
	c := parse(hex)
	return format(colorful.Color{R: c.R * factor, G: c.G * factor, B: c.B * factor})
}

func AddGlow(hex string, intensity float64) string {
	return AdjustBrightness(hex, 1.0+intensity*0.6)
}

func Desaturate(hex string, amount float64) string {
	h, s, l := parse(hex).Hsl()
	return format(colorful.Hsl(h, s*(1-clampFloat(amount, 0, 1)), l))
}

// Saturation and Brightness are the HSV components, each 0-1.
func Saturation(hex string) float64 {
	_, s, _ := parse(hex).Hsv()
	return s
}

func Brightness(hex string) float64 {
	_, _, v := parse(hex).Hsv()
	return v
}

func smoothStep(t float64) float64 {
	t = clampFloat(t, 0, 1)
	return t * t * (3 - 2*t)
}

func clampFloat(v float64, lo float64, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func RenderGradientText(text string, gradient []string, bold bool) string {
	if len(text) == 0 {
		return ""
	}
	if len(gradient) == 0 {
		return text
	}

	runes := []rune(text)
	var result strings.Builder

	for i, r := range runes {
		colorIdx := 0
		if len(runes) > 1 {
			colorIdx = i * (len(gradient) - 1) / (len(runes) - 1)
		}
		colorIdx = clampInt(colorIdx, 0, len(gradient)-1)

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[colorIdx]))
		if bold {
			style = style.Bold(true)
		}
		result.WriteString(style.Render(string(r)))
	}

	return result.String()
}

// FormatDuration renders m:ss, or h:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
