package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"musicdeck.dev/musicdeck/internal/artwork"
	"musicdeck.dev/musicdeck/internal/colors"
	"musicdeck.dev/musicdeck/internal/config"
	"musicdeck.dev/musicdeck/internal/terminal"
)

const (
	errorColor  = "#FF6B6B"
	bannerFont  = "small"
	placeholder = "···"
)

func (m Model) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	if m.quitting {
		return ""
	}

	palette := m.display.Palette
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	if m.display.Track == nil {
		return m.renderWaitingScreen(palette, width, height)
	}

	return m.renderMainScreen(palette, width, height)
}

func (m Model) renderWaitingScreen(palette *artwork.Palette, width int, height int) string {
	banner := m.renderBanner(palette, width)
	centerY := height / 2
	bannerTop := centerY - 2 - len(banner)

	lines := make([]string, 0, height)
	for y := 0; y < height; y++ {
		switch {
		case bannerTop >= 0 && y >= bannerTop && y < bannerTop+len(banner):
			lines = append(lines, banner[y-bannerTop])
		case y == centerY-1:
			waitText := "awaiting music"
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(palette.Dim)).
				Italic(true)
			lines = append(lines, centerText(style.Render(waitText), len(waitText), width))
		case y == centerY:
			pulseChars := []string{"·", "•", "●", "•"}
			pulseIdx := (m.tickCount / 4) % len(pulseChars)
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
			lines = append(lines, centerText(style.Render(pulseChars[pulseIdx]), 1, width))
		default:
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}

// renderBanner draws the app name in the palette gradient, or nothing when
// the terminal is too narrow.
func (m Model) renderBanner(palette *artwork.Palette, width int) []string {
	rows := figure.NewFigure(config.AppName, bannerFont, false).Slicify()

	bannerWidth := 0
	for _, row := range rows {
		if w := len(strings.TrimRight(row, " ")); w > bannerWidth {
			bannerWidth = w
		}
	}
	if bannerWidth == 0 || bannerWidth > width-4 {
		return nil
	}

	gradient := colors.GenerateMultiGradient([]string{palette.Primary, palette.Secondary, palette.Accent}, bannerWidth)

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		row = strings.TrimRight(row, " ")
		if row == "" {
			continue
		}
		lines = append(lines, centerText(colors.RenderGradientText(row, gradient, true), bannerWidth, width))
	}
	return lines
}

func (m Model) renderMainScreen(palette *artwork.Palette, width int, height int) string {
	var lines []string

	headerHeight := 0

	if !m.hideHeader {
		headerLines := m.renderCompactHeader(palette, width)
		lines = append(lines, headerLines...)
		headerHeight = len(headerLines)
	}

	lyricsHeight := height - headerHeight

	if m.err != nil {
		lines = append(lines, m.renderErrorSection(palette, lyricsHeight, width)...)
	} else if m.display.Instrumental && m.tracker.Len() == 0 {
		lines = append(lines, m.renderInstrumental(palette, lyricsHeight, width)...)
	} else if _, ok := m.lyricAt(m.display.CurrentIndex); ok {
		lines = append(lines, m.renderSlidingLyrics(palette, lyricsHeight, width)...)
	} else {
		lines = append(lines, m.renderWaitingForLyrics(palette, lyricsHeight, width)...)
	}

	for len(lines) < height {
		lines = append(lines, "")
	}

	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderCompactHeader(palette *artwork.Palette, width int) []string {
	var lines []string

	lines = append(lines, "")

	artWidth := 12
	artHeight := 6
	if width < 80 {
		artWidth = 8
		artHeight = 4
	}
	if width < 50 || m.height < 25 {
		artWidth = 0
		artHeight = 0
	}

	infoLines := m.renderTrackInfo(palette, width)

	if kitty := m.kittyArtwork(artWidth, artHeight); kitty != "" {
		lines = append(lines, "  "+kitty)
		for i := 0; i < artHeight-1; i++ {
			lines = append(lines, "")
		}
		for _, infoLine := range infoLines {
			lines = append(lines, "  "+infoLine)
		}
	} else {
		lines = append(lines, sideBySide(artwork.RenderHalfBlockArt(m.display.Image, artWidth, artHeight), infoLines, artWidth, artHeight)...)
	}

	lines = append(lines, "")

	trk := m.display.Track
	if trk != nil && trk.Duration > 0 {
		progressBar := m.renderMinimalProgress(palette, width)
		lines = append(lines, progressBar)
	}

	lines = append(lines, "")

	return lines
}

// kittyArtwork encodes the cover for terminals that opted into kitty
// graphics, or returns "" to fall back to half blocks.
func (m Model) kittyArtwork(artWidth int, artHeight int) string {
	if m.termCaps == nil || !m.termCaps.KittyGraphics || artWidth == 0 || m.display.Image == nil {
		return ""
	}

	encoded, err := terminal.EncodeKittyImage(m.display.Image, artWidth, artHeight)
	if err != nil {
		m.log.Debug("kitty artwork failed", "error", err)
		return ""
	}
	return encoded
}

func sideBySide(artworkLines []string, infoLines []string, artWidth int, artHeight int) []string {
	maxLines := len(infoLines)
	if artWidth > 0 && artHeight > maxLines {
		maxLines = artHeight
	}

	lines := make([]string, 0, maxLines)
	for i := 0; i < maxLines; i++ {
		var line strings.Builder

		if artWidth > 0 && i < len(artworkLines) {
			line.WriteString("  ")
			line.WriteString(artworkLines[i])
			line.WriteString("  ")
		} else if artWidth > 0 {
			line.WriteString(strings.Repeat(" ", artWidth+4))
		}

		if i < len(infoLines) {
			line.WriteString(infoLines[i])
		}

		lines = append(lines, line.String())
	}
	return lines
}

func (m Model) renderTrackInfo(palette *artwork.Palette, width int) []string {
	trk := m.display.Track
	if trk == nil {
		return nil
	}

	var lines []string

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Primary)).
		Bold(true)

	artistStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Secondary))

	maxWidth := width - 20
	if maxWidth < 20 {
		maxWidth = 20
	}

	title := trk.Title
	title = truncate(title, maxWidth)
	lines = append(lines, titleStyle.Render(title))

	artist := trk.Artist
	artist = truncate(artist, maxWidth)
	lines = append(lines, artistStyle.Render(artist))

	if trk.Album != "" {
		albumStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(palette.Dim))
		album := trk.Album
		album = truncate(album, maxWidth)
		lines = append(lines, albumStyle.Render(album))
	}

	if status := m.statusLine(); status != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(palette.Dim)).
			Italic(true)
		lines = append(lines, statusStyle.Render(status))
	}

	return lines
}

// statusLine summarises playback, lyric source and sync offset.
func (m Model) statusLine() string {
	var parts []string

	if m.source != nil && !m.playing {
		parts = append(parts, "paused")
	}
	if m.display.Lyrics != nil && !m.display.Lyrics.Synced {
		parts = append(parts, "unsynced")
	}
	if m.display.Source != "" {
		parts = append(parts, m.display.Source)
	}
	if m.syncOffset != 0 {
		parts = append(parts, fmt.Sprintf("offset %+.1fs", m.syncOffset))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}

	return strings.Join(parts, " · ")
}

func (m Model) renderMinimalProgress(palette *artwork.Palette, width int) string {
	trk := m.display.Track
	if trk == nil || trk.Duration == 0 {
		return ""
	}

	barWidth := width - 20
	if barWidth < 20 {
		barWidth = 20
	}

	progress := float64(m.position) / float64(trk.Duration)
	if progress > 1.0 {
		progress = 1.0
	}
	if progress < 0 {
		progress = 0
	}

	filledWidth := int(float64(barWidth) * progress)

	var bar strings.Builder

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Primary))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Faint(true)

	for i := 0; i < barWidth; i++ {
		if i < filledWidth {
			bar.WriteString(filledStyle.Render("━"))
		} else if i == filledWidth {
			bar.WriteString(filledStyle.Render("●"))
		} else {
			bar.WriteString(emptyStyle.Render("─"))
		}
	}

	currentTime := colors.FormatDuration(m.position)
	totalTime := colors.FormatDuration(trk.Duration)

	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	return fmt.Sprintf("  %s  %s  %s",
		timeStyle.Render(currentTime),
		bar.String(),
		timeStyle.Render(totalTime))
}

func (m Model) renderSlidingLyrics(palette *artwork.Palette, height int, width int) []string {
	renderer := NewTextRenderer(palette, &m.animState, width)

	slideT := m.animState.SlideOffset()

	output := make([]string, height)
	for i := range output {
		output[i] = ""
	}

	contextCount := 2
	if height < 20 {
		contextCount = 1
	}

	type renderedLyric struct {
		lines      []string
		offset     int
		isFocus    bool
		brightness float64
	}

	var allLyrics []renderedLyric

	for offset := -contextCount - 1; offset <= contextCount+1; offset++ {
		line, ok := m.lyricAt(m.display.CurrentIndex + offset)
		if !ok {
			continue
		}

		text := line.Text
		if text == "" {
			text = placeholder
		}

		var brightness float64
		var isFocus bool

		if offset == 0 {
			brightness = 1.0
			isFocus = true
		} else if offset == -1 && slideT < 1.0 {
			brightness = lerp(0.7, 0.4, slideT)
			isFocus = false
		} else if offset == 1 && slideT < 1.0 {
			brightness = lerp(0.35, 0.5, slideT)
			isFocus = false
		} else {
			dist := offset
			if dist < 0 {
				dist = -dist
			}
			brightness = 0.5 - float64(dist-1)*0.1
			if brightness < 0.3 {
				brightness = 0.3
			}
			isFocus = false
		}

		var rendered []string
		if isFocus {
			rendered = renderer.RenderFocusLyric(text)
		} else {
			isPast := offset < 0
			rendered = renderer.RenderContextLyric(text, brightness, isPast)
		}

		allLyrics = append(allLyrics, renderedLyric{
			lines:      rendered,
			offset:     offset,
			isFocus:    isFocus,
			brightness: brightness,
		})
	}

	var currentLyricIdx int
	var currentLyricHeight int
	for i, rl := range allLyrics {
		if rl.offset == 0 {
			currentLyricIdx = i
			currentLyricHeight = len(rl.lines)
			break
		}
	}

	centerY := (height - currentLyricHeight) / 2
	if centerY < 0 {
		centerY = 0
	}

	spacing := 2
	slideAmount := float64(currentLyricHeight + spacing)

	positions := make([]int, len(allLyrics))
	positions[currentLyricIdx] = centerY

	y := centerY
	for i := currentLyricIdx - 1; i >= 0; i-- {
		y -= len(allLyrics[i].lines) + spacing
		positions[i] = y
	}

	y = centerY + currentLyricHeight + spacing
	for i := currentLyricIdx + 1; i < len(allLyrics); i++ {
		positions[i] = y
		y += len(allLyrics[i].lines) + spacing
	}

	// the new line starts one slot lower and settles on the center row
	slideOffset := int((1 - slideT) * slideAmount)

	for pass := 0; pass < 2; pass++ {
		for i, rl := range allLyrics {
			if pass == 0 && rl.isFocus {
				continue
			}
			if pass == 1 && !rl.isFocus {
				continue
			}

			finalY := positions[i] + slideOffset

			for j, line := range rl.lines {
				row := finalY + j
				if row >= 0 && row < height {
					if output[row] == "" || rl.isFocus {
						output[row] = line
					}
				}
			}
		}
	}

	return output
}

func (m Model) renderErrorSection(palette *artwork.Palette, height int, width int) []string {
	lines := make([]string, 0, height)

	for i := 0; i < height/2-1; i++ {
		lines = append(lines, "")
	}

	errStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(errorColor))

	errText := m.err.Error()
	lines = append(lines, centerText(errStyle.Render(errText), len(errText), width))

	return lines
}

func (m Model) renderWaitingForLyrics(palette *artwork.Palette, height int, width int) []string {
	lines := make([]string, 0, height)

	for i := 0; i < height/2-1; i++ {
		lines = append(lines, "")
	}

	if m.loadingState.IsLoadingLyrics() {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		idx := m.tickCount % len(frames)
		spinnerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
		textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
		msgText := spinnerStyle.Render(frames[idx]) + textStyle.Render(" loading")
		lines = append(lines, centerText(msgText, 10, width))
	} else if m.display.CurrentIndex >= m.tracker.Len() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
		lines = append(lines, centerText(style.Render("·"), 1, width))
	} else {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
		lines = append(lines, centerText(style.Render("♪"), 1, width))
	}

	return lines
}

func (m Model) renderInstrumental(palette *artwork.Palette, height int, width int) []string {
	lines := make([]string, 0, height)

	for i := 0; i < height/2-1; i++ {
		lines = append(lines, "")
	}

	noteStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
	textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true)
	text := "instrumental"

	lines = append(lines, centerText(noteStyle.Render("♪"), 1, width))
	lines = append(lines, "")
	lines = append(lines, centerText(textStyle.Render(text), len(text), width))

	return lines
}

func truncate(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) <= maxWidth {
		return s
	}
	return string(runes[:maxWidth-1]) + "…"
}

func centerText(text string, visualWidth int, screenWidth int) string {
	padding := (screenWidth - visualWidth) / 2
	if padding < 0 {
		padding = 0
	}
	return strings.Repeat(" ", padding) + text
}
