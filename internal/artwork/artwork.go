// Package artwork loads cover art and derives the viewer palette from it.
package artwork

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"

	"musicdeck.dev/musicdeck/internal/colors"
)

const (
	fetchTimeout  = 5 * time.Second
	maxImageBytes = 10 << 20
	gradientSteps = 20
	dimColor      = "#6272A4"
)

var ErrNoArtwork = errors.New("no artwork")

type Palette struct {
	Primary      string
	Secondary    string
	Accent       string
	Dim          string
	Gradient     []string
	GradientInfo string // which color pair the gradient uses
}

var httpClient = &http.Client{Timeout: fetchTimeout}

// Fetch loads an image from an http(s) or file:// url.
func Fetch(ctx context.Context, artworkURL string) (image.Image, error) {
	if artworkURL == "" {
		return nil, ErrNoArtwork
	}

	parsed, err := url.Parse(artworkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid artwork url: %w", err)
	}

	switch parsed.Scheme {
	case "file":
		f, err := os.Open(parsed.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		defer f.Close()
		return decode(f)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported artwork url scheme %q", parsed.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	return decode(io.LimitReader(resp.Body, maxImageBytes))
}

// Decode reads artwork embedded in audio tags.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrNoArtwork
	}
	return decode(bytes.NewReader(data))
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return img, nil
}

type candidate struct {
	hex        string
	sat        float64
	brightness float64
	score      float64
}

// ExtractPalette picks primary, secondary and accent colors from the most
// prominent clusters of img, favouring saturated mid-bright colors.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	items, err := prominentcolor.KmeansWithAll(5, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(items) < 3 {
		return DefaultPalette()
	}

	candidates := make([]candidate, len(items))
	for i, item := range items {
		hex := colors.RGBToHex(int(item.Color.R), int(item.Color.G), int(item.Color.B))
		sat := colors.Saturation(hex)
		brightness := colors.Brightness(hex)
		candidates[i] = candidate{
			hex:        hex,
			sat:        sat,
			brightness: brightness,
			score:      sat * (1.0 - abs(brightness-0.6)),
		}
	}

	primary := candidates[0]
	maxScore := -1.0
	for _, c := range candidates {
		if c.score > maxScore && c.brightness > 0.3 && c.sat > 0.2 {
			maxScore = c.score
			primary = c
		}
	}

	secondary := pick(candidates, 0.15, 0.3, primary.hex)
	accent := pick(candidates, 0.1, 0.25, primary.hex, secondary.hex)

	selected := []candidate{primary, secondary, accent}
	for i := range selected {
		selected[i].hex = boostColor(selected[i])
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].brightness > selected[j].brightness
	})

	primaryColor := selected[0].hex
	accentColor := selected[1].hex
	secondaryColor := selected[2].hex

	gradStart, gradEnd, gradientInfo := selectBestGradientPair(primaryColor, secondaryColor, accentColor)

	return &Palette{
		Primary:      primaryColor,
		Secondary:    secondaryColor,
		Accent:       accentColor,
		Dim:          dimColor,
		Gradient:     colors.GenerateGradient(gradStart, gradEnd, gradientSteps),
		GradientInfo: gradientInfo,
	}
}

// pick returns the first candidate above the thresholds that is not one of
// exclude, or the first candidate when none qualifies.
func pick(candidates []candidate, minSat float64, minBrightness float64, exclude ...string) candidate {
	for _, c := range candidates {
		excluded := false
		for _, hex := range exclude {
			if c.hex == hex {
				excluded = true
				break
			}
		}
		if !excluded && c.sat > minSat && c.brightness > minBrightness {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

// selectBestGradientPair returns the pair with the smallest step jump,
// preferring a brighter start when two pairs are nearly as smooth.
func selectBestGradientPair(primary string, secondary string, accent string) (string, string, string) {
	type colorPair struct {
		start      string
		end        string
		name       string
		smoothness float64
	}

	pairs := []colorPair{
		{start: primary, end: secondary, name: "primary → secondary"},
		{start: primary, end: accent, name: "primary → accent"},
		{start: secondary, end: primary, name: "secondary → primary"},
		{start: secondary, end: accent, name: "secondary → accent"},
		{start: accent, end: primary, name: "accent → primary"},
		{start: accent, end: secondary, name: "accent → secondary"},
	}

	for i := range pairs {
		pairs[i].smoothness = colors.CalculateGradientSmoothness(pairs[i].start, pairs[i].end, gradientSteps)
	}

	best := 0
	for i := 1; i < len(pairs); i++ {
		if pairs[i].smoothness < pairs[best].smoothness {
			best = i
		}
	}

	smoothest := pairs[best].smoothness
	for i := range pairs {
		if pairs[i].smoothness-smoothest < 5 &&
			colors.GetLightness(pairs[i].start) > colors.GetLightness(pairs[best].start) {
			best = i
		}
	}

	return pairs[best].start, pairs[best].end, pairs[best].name
}

func DefaultPalette() *Palette {
	return &Palette{
		Primary:      "#8BA4E8",
		Secondary:    "#E8A4C8",
		Accent:       "#B8A8E8",
		Dim:          dimColor,
		Gradient:     colors.GenerateGradient("#8BA4E8", "#E8A4C8", gradientSteps),
		GradientInfo: "primary → secondary (default)",
	}
}

// boostColor lifts dark colors and tames washed out ones so text stays
// readable on a dark terminal.
func boostColor(c candidate) string {
	hex := c.hex
	if c.brightness < 0.4 {
		factor := 2.5
		if c.brightness > 0 {
			factor = min(0.4/c.brightness, 2.5)
		}
		hex = colors.AdjustBrightness(hex, factor)
	}
	if c.brightness > 0.85 {
		hex = colors.Desaturate(hex, 0.3)
	}
	return hex
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// RenderHalfBlockArt draws img with upper half blocks, two pixel rows per
// terminal row.
func RenderHalfBlockArt(img image.Image, targetWidth int, targetHeight int) []string {
	if img == nil || targetWidth < 4 || targetHeight < 2 {
		return nil
	}

	resized := resize.Resize(uint(targetWidth), uint(targetHeight*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	lines := make([]string, targetHeight)
	for y := 0; y < targetHeight; y++ {
		var line strings.Builder
		topY := bounds.Min.Y + y*2
		bottomY := topY + 1
		if bottomY >= bounds.Max.Y {
			bottomY = topY
		}

		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			topR, topG, topB, topA := resized.At(x, topY).RGBA()
			bottomR, bottomG, bottomB, bottomA := resized.At(x, bottomY).RGBA()

			if topA>>8 < 128 && bottomA>>8 < 128 {
				line.WriteString(" ")
				continue
			}

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(colors.RGBToHex(int(topR>>8), int(topG>>8), int(topB>>8)))).
				Background(lipgloss.Color(colors.RGBToHex(int(bottomR>>8), int(bottomG>>8), int(bottomB>>8))))

			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}

	return lines
}
