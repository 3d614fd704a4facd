package ui

import (
	"context"
	"errors"
	"image"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"musicdeck.dev/musicdeck/internal/artwork"
	"musicdeck.dev/musicdeck/internal/lrc"
	"musicdeck.dev/musicdeck/internal/lyrics"
	"musicdeck.dev/musicdeck/internal/player"
	"musicdeck.dev/musicdeck/internal/track"
)

var (
	errNoTrack       = errors.New("no track playing")
	errNoLyrics      = errors.New("no lyrics found")
	errNoLyricLoader = errors.New("lyrics unavailable")
)

const (
	lyricsLoadTimeout  = 30 * time.Second
	artworkLoadTimeout = 10 * time.Second
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case PlayerEventMsg:
		return m.handlePlayerEvent(msg.Event)

	case ArtworkFetchedMsg:
		return m.handleArtworkFetched(msg)

	case LyricsLoadedMsg:
		return m.handleLyricsLoaded(msg)

	case TickMsg:
		return m.handleTick()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.Stop()
		return m, tea.Quit

	case "up", "k", "+", "=":
		m.shiftOffset(fineOffsetStep)

	case "down", "j", "-":
		m.shiftOffset(-fineOffsetStep)

	case "left", "h":
		m.shiftOffset(-coarseOffsetStep)

	case "right", "l":
		m.shiftOffset(coarseOffsetStep)

	case "0":
		m.syncOffset = 0
		m.offsetChanged()

	case "tab", "i":
		m.hideHeader = !m.hideHeader

	case " ", "p":
		m.control(func(c player.Controller) error { return c.TogglePause() })

	case ",", "<":
		m.control(func(c player.Controller) error { return c.SeekBy(-seekStep) })

	case ".", ">":
		m.control(func(c player.Controller) error { return c.SeekBy(seekStep) })
	}

	return m, nil
}

func (m *Model) shiftOffset(delta float64) {
	m.syncOffset += delta
	m.offsetChanged()
}

func (m *Model) offsetChanged() {
	m.updateLyricIndex(m.position)
	m.saveSyncOffset()
}

// control runs fn when the source can be driven, otherwise the key is
// ignored.
func (m *Model) control(fn func(player.Controller) error) {
	ctrl, ok := m.source.(player.Controller)
	if !ok {
		return
	}
	if err := fn(ctrl); err != nil {
		m.log.Warn("player control failed", "error", err)
		m.status = err.Error()
	}
}

func (m *Model) saveSyncOffset() {
	if m.display.Track == nil || m.loader == nil {
		return
	}
	if err := m.loader.SaveOffset(m.display.Track, m.syncOffset); err != nil {
		m.log.Warn("failed to save sync offset", "track", m.display.Track.String(), "error", err)
	}
}

func (m Model) handlePlayerEvent(event player.EventData) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenForPlayerEvents()}

	switch event.Type {
	case player.EventTrackChanged:
		return m.handleTrackChange(event.Track, cmds)

	case player.EventSeeked:
		m.position = event.Position
		m.updateLyricIndex(event.Position)
		m.animState.Reset()
		m.animState.TargetScrollY = float64(m.display.CurrentIndex)

	case player.EventPlaybackStateChanged:
		m.playing = event.Playing

	case player.EventFinished:
		m.playing = false
		if m.quitOnFinish {
			m.quitting = true
			m.Stop()
			return m, tea.Quit
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleTrackChange(newTrack *track.Info, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	m.display.Track = newTrack
	m.resetForNewTrack()

	if newTrack == nil || !newTrack.IsValid() {
		m.err = errNoTrack
		return m, tea.Batch(cmds...)
	}

	m.log.Info("track changed", "track", newTrack.String())

	if cmd := loadArtworkCmd(newTrack); cmd != nil {
		m.setLoadingArtwork(true)
		cmds = append(cmds, cmd)
	}

	m.setLoadingLyrics(true)
	cmds = append(cmds, loadLyricsCmd(m.loader, newTrack))

	return m, tea.Batch(cmds...)
}

func (m Model) handleArtworkFetched(msg ArtworkFetchedMsg) (tea.Model, tea.Cmd) {
	if !m.isCurrent(msg.Track) {
		return m, nil
	}

	m.setLoadingArtwork(false)

	if msg.Err != nil {
		m.log.Debug("artwork unavailable", "error", msg.Err)
		return m, nil
	}

	m.display.Image = msg.Image
	if msg.Palette != nil {
		m.display.Palette = msg.Palette
	}
	return m, nil
}

func (m Model) handleLyricsLoaded(msg LyricsLoadedMsg) (tea.Model, tea.Cmd) {
	if !m.isCurrent(msg.Track) {
		return m, nil
	}

	m.setLoadingLyrics(false)
	m.tracker.Reset(nil)
	m.display.Lyrics = nil
	m.display.CurrentIndex = -1
	m.display.PrevIndex = -1

	if msg.Err != nil {
		if errors.Is(msg.Err, lyrics.ErrNotFound) {
			m.err = errNoLyrics
		} else {
			m.log.Warn("failed to load lyrics", "error", msg.Err)
			m.err = msg.Err
		}
		return m, nil
	}

	loaded := msg.Loaded
	m.err = nil
	m.display.Source = loaded.Source
	m.display.Instrumental = loaded.Instrumental
	if loaded.SyncOffset != 0 {
		m.syncOffset = loaded.SyncOffset
	}

	if loaded.Lyrics == nil || loaded.Lyrics.IsEmpty() {
		if !loaded.Instrumental {
			m.err = errNoLyrics
		}
		return m, nil
	}

	m.display.Lyrics = loaded.Lyrics
	m.tracker.Reset(loaded.Lyrics.Lines)
	m.updateLyricIndex(m.position)

	return m, nil
}

func (m Model) isCurrent(t *track.Info) bool {
	return m.display.Track != nil && m.display.Track.IsSameTrack(t)
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.tickCount++

	if m.source == nil {
		m.animState.Update(m.tickCount, false, transitionTicks)
		return m, tickCmd()
	}

	if err := m.source.Poll(); err != nil {
		m.animState.Update(m.tickCount, false, transitionTicks)
		return m, tickCmd()
	}

	pos, err := m.source.Position()
	if err != nil {
		m.animState.Update(m.tickCount, false, transitionTicks)
		return m, tickCmd()
	}

	m.position = pos
	m.playing = m.source.State().Playing

	lineChanged := m.updateLyricIndex(pos)
	m.animState.Update(m.tickCount, lineChanged, transitionTicks)

	return m, tickCmd()
}

// loadArtworkCmd prefers embedded artwork over the track's artwork url.
func loadArtworkCmd(t *track.Info) tea.Cmd {
	if len(t.Artwork) == 0 && t.ArtworkURL == "" {
		return nil
	}

	return func() tea.Msg {
		img, err := loadArtwork(t)
		if err != nil {
			return ArtworkFetchedMsg{Track: t, Err: err}
		}
		return ArtworkFetchedMsg{
			Track:   t,
			Image:   img,
			Palette: artwork.ExtractPalette(img),
		}
	}
}

func loadArtwork(t *track.Info) (image.Image, error) {
	if len(t.Artwork) > 0 {
		return artwork.Decode(t.Artwork)
	}

	ctx, cancel := context.WithTimeout(context.Background(), artworkLoadTimeout)
	defer cancel()
	return artwork.Fetch(ctx, t.ArtworkURL)
}

func loadLyricsCmd(loader LyricsLoader, t *track.Info) tea.Cmd {
	return func() tea.Msg {
		if loader == nil {
			return LyricsLoadedMsg{Track: t, Err: errNoLyricLoader}
		}

		ctx, cancel := context.WithTimeout(context.Background(), lyricsLoadTimeout)
		defer cancel()

		loaded, err := loader.Load(ctx, t)
		return LyricsLoadedMsg{Track: t, Loaded: loaded, Err: err}
	}
}

// lyricAt is the line shown for the current index, if any.
func (m Model) lyricAt(idx int) (lrc.Line, bool) {
	lines := m.lines()
	if idx < 0 || idx >= len(lines) {
		return lrc.Line{}, false
	}
	return lines[idx], true
}
