// Package playback plays local audio files through the system speaker and
// reports progress the same way an MPRIS player does.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"musicdeck.dev/musicdeck/internal/logger"
	"musicdeck.dev/musicdeck/internal/player"
	"musicdeck.dev/musicdeck/internal/track"
)

const (
	speakerBuffer   = time.Second / 30
	resampleQuality = 4
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

var _ player.Controller = (*Player)(nil)

type decodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decodeFunc{
	".mp3": mp3.Decode,
	".flac": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(rc)
	},
	".wav": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	},
}

// Supported reports whether path has an extension we can decode.
func Supported(path string) bool {
	_, err := decoderFor(path)
	return err == nil
}

func decoderFor(path string) (decodeFunc, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return decode, nil
}

// the speaker can only be initialised once per process
var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

func initSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	speakerOnce.Do(func() {
		speakerRate = rate
		speakerErr = speaker.Init(rate, rate.N(speakerBuffer))
	})
	return speakerRate, speakerErr
}

type Player struct {
	info     *track.Info
	streamer beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	format   beep.Format
	events   chan player.EventData
	log      *slog.Logger

	mu           sync.Mutex
	started      bool
	announced    bool
	reportedDone bool
	finished     atomic.Bool
	stopOnce     sync.Once
}

// Open reads the file's tags and prepares a decoder. Nothing plays until
// Start is called.
func Open(path string, log *slog.Logger) (*Player, error) {
	decode, err := decoderFor(path)
	if err != nil {
		return nil, err
	}

	info, err := track.FromFile(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(info.Path)
	if err != nil {
		return nil, err
	}

	streamer, format, err := decode(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	return newPlayer(info, streamer, format, log), nil
}

func newPlayer(info *track.Info, streamer beep.StreamSeekCloser, format beep.Format, log *slog.Logger) *Player {
	if log == nil {
		log = logger.Discard()
	}

	info.Duration = format.SampleRate.D(streamer.Len())

	return &Player{
		info:     info,
		streamer: streamer,
		ctrl:     &beep.Ctrl{Streamer: streamer},
		format:   format,
		events:   make(chan player.EventData, 16),
		log:      log.With("component", "playback", "file", filepath.Base(info.Path)),
	}
}

func (p *Player) Track() *track.Info {
	return p.info
}

func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	rate, err := initSpeaker(p.format.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	var stream beep.Streamer = p.ctrl
	if rate != p.format.SampleRate {
		stream = beep.Resample(resampleQuality, p.format.SampleRate, rate, p.ctrl)
	}

	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		p.finished.Store(true)
	})))
	p.started = true

	p.log.Info("playback started", "duration", p.info.Duration)
	return nil
}

func (p *Player) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		started := p.started
		p.mu.Unlock()

		if started {
			speaker.Clear()
		}
		if err := p.streamer.Close(); err != nil {
			p.log.Warn("failed to close decoder", "error", err)
		}
	})
}

func (p *Player) Events() <-chan player.EventData {
	return p.events
}

func (p *Player) Position() (time.Duration, error) {
	speaker.Lock()
	samples := p.streamer.Position()
	speaker.Unlock()

	return p.format.SampleRate.D(samples), nil
}

func (p *Player) paused() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return p.ctrl.Paused
}

func (p *Player) State() player.State {
	pos, _ := p.Position()
	info := *p.info

	return player.State{
		Track:    &info,
		Position: pos,
		Playing:  !p.paused() && !p.finished.Load(),
	}
}

// Poll announces the track once and reports the end of the file.
func (p *Player) Poll() error {
	p.mu.Lock()
	announce := !p.announced
	p.announced = true
	done := p.finished.Load() && !p.reportedDone
	if done {
		p.reportedDone = true
	}
	p.mu.Unlock()

	if announce {
		info := *p.info
		p.emit(player.EventData{Type: player.EventTrackChanged, Track: &info})
	}

	if done {
		p.emit(player.EventData{Type: player.EventPlaybackStateChanged, Playing: false})
		p.emit(player.EventData{Type: player.EventFinished})
	}

	return nil
}

func (p *Player) TogglePause() error {
	speaker.Lock()
	p.ctrl.Paused = !p.ctrl.Paused
	playing := !p.ctrl.Paused
	speaker.Unlock()

	p.emit(player.EventData{Type: player.EventPlaybackStateChanged, Playing: playing})
	return nil
}

// SeekBy moves playback, clamped to the file.
func (p *Player) SeekBy(delta time.Duration) error {
	speaker.Lock()
	length := p.streamer.Len()
	target := p.streamer.Position() + p.format.SampleRate.N(delta)
	if target >= length {
		target = length - 1
	}
	if target < 0 {
		target = 0
	}
	err := p.streamer.Seek(target)
	speaker.Unlock()

	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	p.emit(player.EventData{Type: player.EventSeeked, Position: p.format.SampleRate.D(target)})
	return nil
}

func (p *Player) emit(event player.EventData) {
	select {
	case p.events <- event:
	default:
	}
}
