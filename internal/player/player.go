// Package player tracks what is playing and where playback is, either by
// following an MPRIS player on the session bus or by driving a local file.
package player

import (
	"time"

	"musicdeck.dev/musicdeck/internal/track"
)

// SeekThreshold is how far a sampled position may drift from the expected
// one before it counts as a seek.
const SeekThreshold = 3 * time.Second

type Event int

const (
	EventTrackChanged Event = iota
	EventPositionChanged
	EventSeeked
	EventPlaybackStateChanged
	EventFinished
)

func (e Event) String() string {
	switch e {
	case EventTrackChanged:
		return "track-changed"
	case EventPositionChanged:
		return "position-changed"
	case EventSeeked:
		return "seeked"
	case EventPlaybackStateChanged:
		return "playback-state-changed"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

type EventData struct {
	Type     Event
	Track    *track.Info
	Position time.Duration
	Playing  bool
}

// Source reports the current track and playback position.
type Source interface {
	Events() <-chan EventData
	// Poll refreshes the state and emits events for anything that changed.
	Poll() error
	Position() (time.Duration, error)
	State() State
	Stop()
}

// Controller is a Source that can also be driven.
type Controller interface {
	Source
	TogglePause() error
	SeekBy(delta time.Duration) error
}

type State struct {
	Track    *track.Info
	Position time.Duration
	Playing  bool

	lastUpdate   time.Time
	lastPosition time.Duration
}

// DetectSeek compares pos with where playback should be by now.
func (s *State) DetectSeek(pos time.Duration, now time.Time) bool {
	if s.lastUpdate.IsZero() {
		return false
	}

	expected := s.lastPosition
	if s.Playing {
		expected += now.Sub(s.lastUpdate)
	}

	diff := pos - expected
	if diff < 0 {
		diff = -diff
	}

	return diff > SeekThreshold
}

func (s *State) UpdatePosition(pos time.Duration, now time.Time) {
	s.Position = pos
	s.lastPosition = pos
	s.lastUpdate = now
}

// Snapshot copies the state, including the track.
func (s *State) Snapshot() State {
	snapshot := State{
		Position: s.Position,
		Playing:  s.Playing,
	}
	if s.Track != nil {
		trackCopy := *s.Track
		snapshot.Track = &trackCopy
	}
	return snapshot
}
