package ui

import (
	"math"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"musicdeck.dev/musicdeck/internal/artwork"
	"musicdeck.dev/musicdeck/internal/colors"
)

const (
	bigFont        = "small"
	minBigWidth    = 60
	sideMargin     = 8
	minLineRunes   = 5
	minFadeChannel = 15
)

type TextRenderer struct {
	palette     *artwork.Palette
	animState   *AnimState
	screenWidth int
}

func NewTextRenderer(palette *artwork.Palette, animState *AnimState, screenWidth int) *TextRenderer {
	return &TextRenderer{
		palette:     palette,
		animState:   animState,
		screenWidth: screenWidth,
	}
}

// RenderFocusLyric draws the current line, as figlet text when it fits and
// as wrapped gradient text otherwise.
func (r *TextRenderer) RenderFocusLyric(text string) []string {
	if text == "" {
		return nil
	}

	rows := r.bigText(text)
	if rows == nil {
		rows = r.wrapText(text)
	}

	width := 0
	for _, row := range rows {
		if w := len([]rune(row)); w > width {
			width = w
		}
	}

	result := make([]string, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.center(r.paintFocus(row, width), width))
	}
	return result
}

func (r *TextRenderer) RenderContextLyric(text string, brightness float64, isPast bool) []string {
	if text == "" {
		return nil
	}

	color := r.contextColor(brightness, isPast)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))

	var result []string
	for _, line := range r.wrapText(text) {
		result = append(result, r.center(style.Render(line), lipgloss.Width(line)))
	}
	return result
}

// bigText returns figlet rows for text, or nil when the text has characters
// the font lacks or would not fit on screen.
func (r *TextRenderer) bigText(text string) []string {
	if r.screenWidth < minBigWidth {
		return nil
	}
	for _, c := range text {
		if c > unicode.MaxASCII || !unicode.IsPrint(c) {
			return nil
		}
	}

	rows := figure.NewFigure(text, bigFont, false).Slicify()
	maxWidth := r.screenWidth - sideMargin
	trimmed := make([]string, 0, len(rows))
	for _, row := range rows {
		row = strings.TrimRight(row, " ")
		if len(row) > maxWidth {
			return nil
		}
		trimmed = append(trimmed, row)
	}

	for len(trimmed) > 0 && trimmed[len(trimmed)-1] == "" {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if len(trimmed) == 0 {
		return nil
	}
	return trimmed
}

func (r *TextRenderer) wrapText(text string) []string {
	maxChars := r.screenWidth - sideMargin
	if maxChars < minLineRunes {
		maxChars = minLineRunes
	}

	var lines []string
	var current string

	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}

		if lipgloss.Width(candidate) <= maxChars {
			current = candidate
			continue
		}

		if current != "" {
			lines = append(lines, current)
		}
		if runes := []rune(word); len(runes) > maxChars {
			current = string(runes[:maxChars])
		} else {
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}

	return lines
}

func (r *TextRenderer) paintFocus(row string, width int) string {
	var line strings.Builder
	for col, c := range []rune(row) {
		if c == ' ' {
			line.WriteRune(c)
			continue
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(r.focusColor(col, width))).Bold(true)
		line.WriteString(style.Render(string(c)))
	}
	return line.String()
}

// focusColor sweeps the palette gradient across the line and fades columns
// in from the left while the line is being revealed.
func (r *TextRenderer) focusColor(col int, width int) string {
	pos := 0.0
	if width > 1 {
		pos = float64(col) / float64(width-1)
	}

	base := colors.BlendColors(r.palette.Primary, r.palette.Accent, pos)

	if r.animState.GlowIntensity > 0.05 {
		base = colors.AddGlow(base, r.animState.GlowIntensity*0.5)
	}

	shimmer := math.Sin(r.animState.ShimmerPhase+float64(col)*0.05)*0.5 + 0.5
	if shimmer > 0.5 {
		base = colors.AddGlow(base, (shimmer-0.5)*0.25)
	}

	if r.animState.CharReveal >= 1.0 {
		return base
	}

	revealT := clamp((easeOutQuart(r.animState.CharReveal)-pos*0.3)/0.7, 0, 1)
	fade := easeOutCubic(revealT)

	red, green, blue := colors.HexToRGB(base)
	return colors.RGBToHex(
		fadeChannel(red, fade),
		fadeChannel(green, fade),
		fadeChannel(blue, fade),
	)
}

func fadeChannel(v int, fade float64) int {
	faded := int(float64(v) * fade)
	if faded < minFadeChannel {
		return minFadeChannel
	}
	return faded
}

// contextColor is grey scaled by brightness. lines already sung keep a
// trace of the palette.
func (r *TextRenderer) contextColor(brightness float64, isPast bool) string {
	grey := int(clamp(160*brightness, 50, 160))
	color := colors.RGBToHex(grey, grey, grey)
	if isPast {
		color = colors.BlendColors(color, r.palette.Dim, 0.3)
	}
	return color
}

func (r *TextRenderer) center(rendered string, visualWidth int) string {
	return centerText(rendered, visualWidth, r.screenWidth)
}
