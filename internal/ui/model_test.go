package ui

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicdeck.dev/musicdeck/internal/artwork"
	"musicdeck.dev/musicdeck/internal/lrc"
	"musicdeck.dev/musicdeck/internal/lyrics"
	"musicdeck.dev/musicdeck/internal/player"
	"musicdeck.dev/musicdeck/internal/terminal"
	"musicdeck.dev/musicdeck/internal/track"
)

type fakeSource struct {
	events  chan player.EventData
	pos     time.Duration
	playing bool
	toggles int
	seeks   []time.Duration
	stopped bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan player.EventData, 4), playing: true}
}

func (f *fakeSource) Events() <-chan player.EventData { return f.events }
func (f *fakeSource) Poll() error { return nil }
func (f *fakeSource) Position() (time.Duration, error) {
	return f.pos, nil
}
func (f *fakeSource) State() player.State {
	return player.State{Position: f.pos, Playing: f.playing}
}
func (f *fakeSource) Stop() { f.stopped = true }

func (f *fakeSource) TogglePause() error {
	f.toggles++
	f.playing = !f.playing
	return nil
}

func (f *fakeSource) SeekBy(delta time.Duration) error {
	f.seeks = append(f.seeks, delta)
	return nil
}

type fakeLoader struct {
	loaded  *lyrics.Loaded
	err     error
	offsets []float64
}

func (f *fakeLoader) Load(context.Context, *track.Info) (*lyrics.Loaded, error) {
	return f.loaded, f.err
}

func (f *fakeLoader) SaveOffset(_ *track.Info, offset float64) error {
	f.offsets = append(f.offsets, offset)
	return nil
}

func sampleTrack() *track.Info {
	return &track.Info{Title: "Song", Artist: "Artist", Duration: 3 * time.Minute}
}

func sampleLyrics() *lrc.Lyrics {
	return &lrc.Lyrics{
		Synced: true,
		Lines: []lrc.Line{
			{Time: 2 * time.Second, Text: "first"},
			{Time: 4 * time.Second, Text: "second"},
			{Time: 6 * time.Second, Text: "third"},
		},
	}
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loadedModel returns a model showing sampleLyrics for sampleTrack.
func loadedModel(t *testing.T, src *fakeSource, loader *fakeLoader) Model {
	t.Helper()
	m := NewModel(ModelConfig{Source: src, Loader: loader})
	trk := sampleTrack()

	m = apply(t, m, PlayerEventMsg{Event: player.EventData{Type: player.EventTrackChanged, Track: trk}})
	require.True(t, m.IsLoadingLyrics())

	msg := loadLyricsCmd(loader, trk)()
	return apply(t, m, msg)
}

func TestNewModel_WaitingScreen(t *testing.T) {
	m := NewModel(ModelConfig{})

	assert.Equal(t, -1, m.CurrentIndex())
	assert.NotNil(t, m.Palette())
	assert.Contains(t, m.View(), "awaiting music")
}

func TestModel_LyricsFollowPosition(t *testing.T) {
	src := newFakeSource()
	loader := &fakeLoader{loaded: &lyrics.Loaded{Lyrics: sampleLyrics(), Source: lyrics.SourceCache}}
	m := loadedModel(t, src, loader)

	require.NoError(t, m.Err())
	assert.False(t, m.IsLoadingLyrics())
	assert.Equal(t, lyrics.SourceCache, m.LyricsSource())
	assert.Len(t, m.Lines(), 3)
	assert.Equal(t, 0, m.CurrentIndex(), "first line is previewed before it starts")

	src.pos = 4500 * time.Millisecond
	m = apply(t, m, TickMsg(time.Now()))
	assert.Equal(t, 1, m.CurrentIndex())
	assert.Equal(t, src.pos, m.Position())

	src.pos = time.Minute
	m = apply(t, m, TickMsg(time.Now()))
	assert.Equal(t, 2, m.CurrentIndex())

	m = apply(t, m, PlayerEventMsg{Event: player.EventData{Type: player.EventSeeked, Position: 2 * time.Second}})
	assert.Equal(t, 0, m.CurrentIndex())

	m = apply(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Contains(t, m.View(), "Song")
}

func TestModel_StaleLyricsIgnored(t *testing.T) {
	src := newFakeSource()
	m := NewModel(ModelConfig{Source: src, Loader: &fakeLoader{}})
	m = apply(t, m, PlayerEventMsg{Event: player.EventData{Type: player.EventTrackChanged, Track: sampleTrack()}})

	other := &track.Info{Title: "Other", Artist: "Artist"}
	m = apply(t, m, LyricsLoadedMsg{Track: other, Loaded: &lyrics.Loaded{Lyrics: sampleLyrics()}})

	assert.True(t, m.IsLoadingLyrics())
	assert.False(t, m.IsLoadingArtwork())
	assert.Empty(t, m.Lines())
}

func TestModel_NotFound(t *testing.T) {
	m := loadedModel(t, newFakeSource(), &fakeLoader{err: lyrics.ErrNotFound})

	assert.ErrorIs(t, m.Err(), errNoLyrics)
	assert.Contains(t, m.View(), "no lyrics found")
}

func TestModel_LoadError(t *testing.T) {
	m := loadedModel(t, newFakeSource(), &fakeLoader{err: errors.New("server unreachable")})

	assert.EqualError(t, m.Err(), "server unreachable")
}

func TestModel_Instrumental(t *testing.T) {
	loader := &fakeLoader{loaded: &lyrics.Loaded{Instrumental: true, Lyrics: &lrc.Lyrics{}}}
	m := loadedModel(t, newFakeSource(), loader)

	require.NoError(t, m.Err())
	assert.True(t, m.IsInstrumental())
	assert.Contains(t, m.View(), "instrumental")
}

func TestModel_SyncOffsetKeys(t *testing.T) {
	src := newFakeSource()
	loader := &fakeLoader{loaded: &lyrics.Loaded{Lyrics: sampleLyrics()}}
	m := loadedModel(t, src, loader)

	src.pos = 3900 * time.Millisecond
	m = apply(t, m, TickMsg(time.Now()))
	assert.Equal(t, 0, m.CurrentIndex())

	m = apply(t, m, key("+"))
	assert.InDelta(t, 0.1, m.SyncOffset(), 1e-9)
	assert.Equal(t, 1, m.CurrentIndex())

	m = apply(t, m, key("h"))
	assert.InDelta(t, -0.4, m.SyncOffset(), 1e-9)
	assert.Equal(t, 0, m.CurrentIndex())

	m = apply(t, m, key("0"))
	assert.Equal(t, 0.0, m.SyncOffset())

	require.Len(t, loader.offsets, 3)
	assert.InDelta(t, 0.1, loader.offsets[0], 1e-9)
	assert.InDelta(t, -0.4, loader.offsets[1], 1e-9)
	assert.Equal(t, 0.0, loader.offsets[2])
}

func TestModel_RestoresSavedOffset(t *testing.T) {
	loader := &fakeLoader{loaded: &lyrics.Loaded{Lyrics: sampleLyrics(), SyncOffset: -1.5}}
	m := loadedModel(t, newFakeSource(), loader)

	assert.Equal(t, -1.5, m.SyncOffset())

	m = apply(t, m, PlayerEventMsg{Event: player.EventData{Type: player.EventTrackChanged, Track: &track.Info{Title: "Next"}}})
	assert.Equal(t, 0.0, m.SyncOffset())
}

func TestModel_PlaybackControls(t *testing.T) {
	src := newFakeSource()
	m := NewModel(ModelConfig{Source: src})

	m = apply(t, m, key(" "))
	m = apply(t, m, key("."))
	m = apply(t, m, key(","))

	assert.Equal(t, 1, src.toggles)
	assert.Equal(t, []time.Duration{seekStep, -seekStep}, src.seeks)
	assert.Empty(t, m.Status())
}

func TestModel_HeaderToggle(t *testing.T) {
	m := NewModel(ModelConfig{HideHeader: true})
	assert.True(t, m.HideHeader())

	m = apply(t, m, key("i"))
	assert.False(t, m.HideHeader())
}

func TestModel_QuitKey(t *testing.T) {
	src := newFakeSource()
	m := NewModel(ModelConfig{Source: src})

	next, cmd := m.Update(key("q"))

	assert.True(t, next.(Model).IsQuitting())
	assert.NotNil(t, cmd)
	assert.True(t, src.stopped)
	assert.Empty(t, next.View())
}

func TestModel_QuitOnFinish(t *testing.T) {
	src := newFakeSource()

	m := NewModel(ModelConfig{Source: src})
	m = apply(t, m, PlayerEventMsg{Event: player.EventData{Type: player.EventFinished}})
	assert.False(t, m.IsQuitting())

	m = NewModel(ModelConfig{Source: src, QuitOnFinish: true})
	m = apply(t, m, PlayerEventMsg{Event: player.EventData{Type: player.EventFinished}})
	assert.True(t, m.IsQuitting())
	assert.True(t, src.stopped)
}

func TestModel_InvalidTrack(t *testing.T) {
	m := NewModel(ModelConfig{Source: newFakeSource()})
	m = apply(t, m, PlayerEventMsg{Event: player.EventData{Type: player.EventTrackChanged, Track: &track.Info{}}})

	assert.ErrorIs(t, m.Err(), errNoTrack)
	assert.False(t, m.IsLoadingLyrics())
}

func TestLoadLyricsCmd_NoLoader(t *testing.T) {
	msg := loadLyricsCmd(nil, sampleTrack())()

	loaded, ok := msg.(LyricsLoadedMsg)
	require.True(t, ok)
	assert.ErrorIs(t, loaded.Err, errNoLyricLoader)
}

func TestLoadArtworkCmd_NothingToLoad(t *testing.T) {
	assert.Nil(t, loadArtworkCmd(sampleTrack()))
}

func TestLoadArtworkCmd_BadEmbeddedImage(t *testing.T) {
	trk := sampleTrack()
	trk.Artwork = []byte("not an image")

	msg := loadArtworkCmd(trk)()

	fetched, ok := msg.(ArtworkFetchedMsg)
	require.True(t, ok)
	assert.Error(t, fetched.Err)
	assert.Same(t, trk, fetched.Track)
}

func TestModel_ArtworkForCurrentTrackOnly(t *testing.T) {
	trk := sampleTrack()
	m := NewModel(ModelConfig{
		Source:   newFakeSource(),
		TermCaps: &terminal.Capabilities{KittyGraphics: true},
	})
	m = apply(t, m, PlayerEventMsg{Event: player.EventData{Type: player.EventTrackChanged, Track: trk}})

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	palette := &artwork.Palette{Primary: "#112233", Secondary: "#445566", Accent: "#778899", Dim: "#333333"}

	stale := apply(t, m, ArtworkFetchedMsg{Track: &track.Info{Title: "Other"}, Image: img, Palette: palette})
	assert.Nil(t, stale.Image())

	m = apply(t, m, ArtworkFetchedMsg{Track: trk, Image: img, Palette: palette})
	assert.Same(t, palette, m.Palette())
	assert.NotNil(t, m.Image())
	assert.True(t, strings.HasPrefix(m.kittyArtwork(12, 6), "\x1b_G"))
	assert.Empty(t, m.kittyArtwork(0, 0))
}
