package player

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"musicdeck.dev/musicdeck/internal/track"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisIface       = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	mprisNamePrefix  = "org.mpris.MediaPlayer2."
)

var ErrNoTrack = errors.New("no track playing")

var _ Controller = (*MPRIS)(nil)

// MPRIS follows a player on the session bus through PropertiesChanged and
// Seeked signals, with Poll as a fallback for players that signal poorly.
type MPRIS struct {
	bus        *dbus.Conn
	service    string
	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	eventChan  chan EventData
	state      *State
	mu         sync.RWMutex
	now        func() time.Time
}

func NewMPRIS(bus *dbus.Conn, service string) (*MPRIS, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if service == "" {
		return nil, errors.New("empty mpris service name")
	}

	return newMPRIS(bus, service), nil
}

func newMPRIS(bus *dbus.Conn, service string) *MPRIS {
	return &MPRIS{
		bus:       bus,
		service:   service,
		eventChan: make(chan EventData, 16),
		state:     &State{},
		now:       time.Now,
	}
}

// ListPlayers returns the bus names of every running MPRIS player.
func ListPlayers(bus *dbus.Conn) ([]string, error) {
	var names []string
	err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}

	players := filterPlayers(names)
	return players, nil
}

func filterPlayers(names []string) []string {
	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisNamePrefix) {
			players = append(players, name)
		}
	}
	sort.Strings(players)
	return players
}

func (s *MPRIS) Service() string {
	return s.service
}

func (s *MPRIS) Start() error {
	signalChan := make(chan *dbus.Signal, 10)
	s.signalChan = signalChan
	s.stopChan = make(chan struct{})

	s.bus.Signal(signalChan)

	matchPropertiesChanged := fmt.Sprintf(
		"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
		s.service, mprisPath,
	)
	matchSeeked := fmt.Sprintf(
		"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
		s.service, mprisPlayerIface, mprisPath,
	)

	for _, rule := range []string{matchPropertiesChanged, matchSeeked} {
		if err := s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
			s.bus.RemoveSignal(signalChan)
			return fmt.Errorf("failed to add match %q: %w", rule, err)
		}
	}

	go s.signalLoop()

	return nil
}

func (s *MPRIS) Stop() {
	s.stopOnce.Do(func() {
		if s.stopChan != nil {
			close(s.stopChan)
			s.bus.RemoveSignal(s.signalChan)
		}
	})
}

func (s *MPRIS) Events() <-chan EventData {
	return s.eventChan
}

func (s *MPRIS) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Snapshot()
}

func (s *MPRIS) object() dbus.BusObject {
	return s.bus.Object(s.service, mprisPath)
}

// Identity is the player's human readable name.
func (s *MPRIS) Identity() (string, error) {
	prop, err := s.object().GetProperty(mprisIface + ".Identity")
	if err != nil {
		return "", fmt.Errorf("failed to get identity property: %w", err)
	}

	identity, ok := prop.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected identity type %T", prop.Value())
	}

	return identity, nil
}

func (s *MPRIS) CurrentTrack() (*track.Info, error) {
	prop, err := s.object().GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}

	info := trackFromMetadata(metadata)
	if !info.IsValid() {
		return nil, ErrNoTrack
	}

	return info, nil
}

func (s *MPRIS) Position() (time.Duration, error) {
	prop, err := s.object().GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}

	micros, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}

	return microsToDuration(micros), nil
}

func (s *MPRIS) Playing() (bool, error) {
	prop, err := s.object().GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return false, fmt.Errorf("failed to get playback status: %w", err)
	}

	status, ok := prop.Value().(string)
	if !ok {
		return false, fmt.Errorf("unexpected playback status type %T", prop.Value())
	}

	return status == "Playing", nil
}

func (s *MPRIS) TogglePause() error {
	if err := s.object().Call(mprisPlayerIface+".PlayPause", 0).Err; err != nil {
		return fmt.Errorf("failed to toggle playback: %w", err)
	}
	return nil
}

// SeekBy moves playback relative to the current position.
func (s *MPRIS) SeekBy(delta time.Duration) error {
	if err := s.object().Call(mprisPlayerIface+".Seek", 0, delta.Microseconds()).Err; err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

func (s *MPRIS) Poll() error {
	trk, err := s.CurrentTrack()
	if err != nil {
		return err
	}

	pos, err := s.Position()
	if err != nil {
		return err
	}

	playing, playingErr := s.Playing()

	s.mu.Lock()
	now := s.now()
	currentTrack := s.state.Track
	if playingErr == nil {
		s.state.Playing = playing
	}
	seekDetected := s.state.DetectSeek(pos, now)
	s.state.UpdatePosition(pos, now)

	if !trk.IsSameTrack(currentTrack) {
		s.state.Track = trk
		s.mu.Unlock()
		s.emitEvent(EventData{Type: EventTrackChanged, Track: trk, Position: pos})
		return nil
	}
	s.mu.Unlock()

	if seekDetected {
		s.emitEvent(EventData{Type: EventSeeked, Position: pos})
	}

	return nil
}

func (s *MPRIS) signalLoop() {
	for {
		select {
		case sig, ok := <-s.signalChan:
			if !ok {
				return
			}
			s.handleSignal(sig)
		case <-s.stopChan:
			return
		}
	}
}

func (s *MPRIS) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		s.handlePropertiesChanged(sig)
	case mprisPlayerIface + ".Seeked":
		s.handleSeeked(sig)
	}
}

func (s *MPRIS) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != mprisPlayerIface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	if metadataVariant, exists := changedProps["Metadata"]; exists {
		if metadata, ok := metadataVariant.Value().(map[string]dbus.Variant); ok {
			info := trackFromMetadata(metadata)
			if info.IsValid() {
				s.mu.Lock()
				changed := !info.IsSameTrack(s.state.Track)
				s.state.Track = info
				if changed {
					s.state.UpdatePosition(0, s.now())
				}
				s.mu.Unlock()

				if changed {
					s.emitEvent(EventData{Type: EventTrackChanged, Track: info})
				}
			}
		}
	}

	if playbackVariant, exists := changedProps["PlaybackStatus"]; exists {
		if status, ok := playbackVariant.Value().(string); ok {
			playing := status == "Playing"

			s.mu.Lock()
			s.state.Playing = playing
			s.state.lastUpdate = s.now()
			s.mu.Unlock()

			s.emitEvent(EventData{Type: EventPlaybackStateChanged, Playing: playing})
		}
	}
}

func (s *MPRIS) handleSeeked(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}

	micros, ok := sig.Body[0].(int64)
	if !ok {
		return
	}

	pos := microsToDuration(micros)

	s.mu.Lock()
	s.state.UpdatePosition(pos, s.now())
	s.mu.Unlock()

	s.emitEvent(EventData{Type: EventSeeked, Position: pos})
}

// emitEvent drops the event when nobody keeps up with the channel.
func (s *MPRIS) emitEvent(event EventData) {
	select {
	case s.eventChan <- event:
	default:
	}
}

func trackFromMetadata(metadata map[string]dbus.Variant) *track.Info {
	info := &track.Info{
		Title:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		ArtworkURL: extractString(metadata, "mpris:artUrl"),
		TrackID:    extractObjectPath(metadata, "mpris:trackid"),
		Duration:   extractDuration(metadata, "mpris:length"),
	}

	// players of local files (mpv, vlc) expose the file, which lets sidecar
	// and attached lyrics work for them too
	if path := localPath(extractString(metadata, "xesam:url")); path != "" {
		info.Path = path
		info.ID = track.IDForPath(path)
	}

	return info
}

func localPath(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "file" {
		return ""
	}

	return parsed.Path
}

func microsToDuration(micros int64) time.Duration {
	if micros < 0 {
		return 0
	}
	return time.Duration(micros) * time.Microsecond
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	text, _ := variant.Value().(string)
	return text
}

// extractObjectPath reads mpris:trackid, which players send either as an
// object path or as a plain string.
func extractObjectPath(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case dbus.ObjectPath:
		return string(typed)
	case string:
		return typed
	default:
		return ""
	}
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case []string:
		return strings.Join(typed, ", ")
	case string:
		return typed
	default:
		return ""
	}
}

func extractDuration(metadata map[string]dbus.Variant, key string) time.Duration {
	variant, exists := metadata[key]
	if !exists {
		return 0
	}

	switch typed := variant.Value().(type) {
	case int64:
		return microsToDuration(typed)
	case uint64:
		return time.Duration(typed) * time.Microsecond
	case int32:
		return microsToDuration(int64(typed))
	default:
		return 0
	}
}
