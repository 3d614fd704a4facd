// Package ui is the bubbletea lyrics viewer.
package ui

import (
	"context"
	"image"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"musicdeck.dev/musicdeck/internal/artwork"
	"musicdeck.dev/musicdeck/internal/config"
	"musicdeck.dev/musicdeck/internal/logger"
	"musicdeck.dev/musicdeck/internal/lrc"
	"musicdeck.dev/musicdeck/internal/lyrics"
	"musicdeck.dev/musicdeck/internal/player"
	"musicdeck.dev/musicdeck/internal/terminal"
	"musicdeck.dev/musicdeck/internal/track"
)

const (
	fineOffsetStep   = 0.1
	coarseOffsetStep = 0.5
	seekStep         = 5 * time.Second
	transitionTicks  = 8
)

// LyricsLoader is the part of lyrics.Service the viewer needs.
type LyricsLoader interface {
	Load(ctx context.Context, t *track.Info) (*lyrics.Loaded, error)
	SaveOffset(t *track.Info, offset float64) error
}

type LoadingState int

const (
	LoadingNone LoadingState = iota
	LoadingLyrics
	LoadingArtwork
	LoadingBoth
)

func (l LoadingState) IsLoadingLyrics() bool {
	return l == LoadingLyrics || l == LoadingBoth
}

func (l LoadingState) IsLoadingArtwork() bool {
	return l == LoadingArtwork || l == LoadingBoth
}

type TickMsg time.Time

type PlayerEventMsg struct {
	Event player.EventData
}

type ArtworkFetchedMsg struct {
	Track   *track.Info
	Image   image.Image
	Palette *artwork.Palette
	Err     error
}

type LyricsLoadedMsg struct {
	Track  *track.Info
	Loaded *lyrics.Loaded
	Err    error
}

type TrackDisplay struct {
	Track        *track.Info
	Image        image.Image
	Palette      *artwork.Palette
	Lyrics       *lrc.Lyrics
	Source       string
	Instrumental bool
	CurrentIndex int
	PrevIndex    int
}

type Model struct {
	source       player.Source
	loader       LyricsLoader
	log          *slog.Logger
	baseOffset   float64
	syncOffset   float64
	hideHeader   bool
	quitOnFinish bool
	termCaps     *terminal.Capabilities

	display      TrackDisplay
	tracker      *lrc.Tracker
	position     time.Duration
	playing      bool
	loadingState LoadingState
	err          error
	status       string
	quitting     bool
	width        int
	height       int
	tickCount    int
	animState    AnimState
}

type ModelConfig struct {
	Source     player.Source
	Loader     LyricsLoader
	Logger     *slog.Logger
	SyncOffset float64
	HideHeader bool
	TermCaps   *terminal.Capabilities
	// QuitOnFinish ends the program when the source reports the end of
	// playback.
	QuitOnFinish bool
}

func NewModel(cfg ModelConfig) Model {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	m := Model{
		source:       cfg.Source,
		loader:       cfg.Loader,
		log:          log.With("component", "ui"),
		baseOffset:   cfg.SyncOffset,
		syncOffset:   cfg.SyncOffset,
		hideHeader:   cfg.HideHeader,
		quitOnFinish: cfg.QuitOnFinish,
		termCaps:     cfg.TermCaps,
		tracker:      lrc.NewTracker(nil),
	}

	m.display.CurrentIndex = -1
	m.display.PrevIndex = -1
	m.display.Palette = artwork.DefaultPalette()

	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.listenForPlayerEvents())
}

func tickCmd() tea.Cmd {
	return tea.Tick(config.PollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) listenForPlayerEvents() tea.Cmd {
	if m.source == nil {
		return nil
	}

	events := m.source.Events()
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return PlayerEventMsg{Event: event}
	}
}

func (m *Model) setLoadingLyrics(loading bool) {
	if loading {
		if m.loadingState == LoadingArtwork {
			m.loadingState = LoadingBoth
		} else if m.loadingState == LoadingNone {
			m.loadingState = LoadingLyrics
		}
	} else {
		if m.loadingState == LoadingBoth {
			m.loadingState = LoadingArtwork
		} else if m.loadingState == LoadingLyrics {
			m.loadingState = LoadingNone
		}
	}
}

func (m *Model) setLoadingArtwork(loading bool) {
	if loading {
		if m.loadingState == LoadingLyrics {
			m.loadingState = LoadingBoth
		} else if m.loadingState == LoadingNone {
			m.loadingState = LoadingArtwork
		}
	} else {
		if m.loadingState == LoadingBoth {
			m.loadingState = LoadingLyrics
		} else if m.loadingState == LoadingArtwork {
			m.loadingState = LoadingNone
		}
	}
}

func (m *Model) resetForNewTrack() {
	m.display.Lyrics = nil
	m.display.Source = ""
	m.display.Instrumental = false
	m.display.CurrentIndex = -1
	m.display.PrevIndex = -1
	m.display.Image = nil
	m.display.Palette = artwork.DefaultPalette()
	m.tracker.Reset(nil)
	m.position = 0
	m.syncOffset = m.baseOffset
	m.err = nil
	m.status = ""
	m.animState.Reset()
}

// adjustedPosition applies the user's sync offset.
func (m *Model) adjustedPosition(pos time.Duration) time.Duration {
	return pos + time.Duration(m.syncOffset*float64(time.Second))
}

// updateLyricIndex moves the highlighted line and reports whether it
// changed. Before the first timestamp the first line is shown.
func (m *Model) updateLyricIndex(pos time.Duration) bool {
	if m.tracker.Len() == 0 {
		return false
	}

	idx, _ := m.tracker.Update(m.adjustedPosition(pos))
	if idx < 0 {
		idx = 0
	}

	if idx == m.display.CurrentIndex {
		return false
	}

	m.display.PrevIndex = m.display.CurrentIndex
	m.display.CurrentIndex = idx
	m.animState.TargetScrollY = float64(idx)
	return true
}

func (m Model) lines() []lrc.Line {
	return m.tracker.Lines()
}

func (m Model) Width() int { return m.width }
func (m Model) Height() int { return m.height }

func (m Model) Track() *track.Info { return m.display.Track }
func (m Model) Position() time.Duration { return m.position }
func (m Model) Palette() *artwork.Palette { return m.display.Palette }
func (m Model) Image() image.Image { return m.display.Image }
func (m Model) Lines() []lrc.Line { return m.lines() }
func (m Model) CurrentIndex() int { return m.display.CurrentIndex }
func (m Model) SyncOffset() float64 { return m.syncOffset }
func (m Model) HideHeader() bool { return m.hideHeader }
func (m Model) Err() error { return m.err }
func (m Model) Status() string { return m.status }
func (m Model) IsQuitting() bool { return m.quitting }
func (m Model) IsLoadingLyrics() bool { return m.loadingState.IsLoadingLyrics() }
func (m Model) IsLoadingArtwork() bool { return m.loadingState.IsLoadingArtwork() }
func (m Model) IsInstrumental() bool { return m.display.Instrumental }
func (m Model) LyricsSource() string { return m.display.Source }
func (m Model) AnimState() *AnimState { return &m.animState }

func (m *Model) Stop() {
	if m.source != nil {
		m.source.Stop()
	}
}
