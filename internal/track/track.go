// Package track describes the song currently playing, whether it comes from
// an MPRIS player or a local file.
package track

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

type Info struct {
	// ID keys lyric files in the store. Local files use IDForPath.
	ID         string
	Path       string
	Title      string
	Artist     string
	Album      string
	Duration   time.Duration
	ArtworkURL string
	Artwork    []byte
	// TrackID is the player's own identifier (mpris:trackid).
	TrackID string
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != ""
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.TrackID != "" && other.TrackID != "" {
		return t.TrackID == other.TrackID
	}
	if t.Path != "" && other.Path != "" {
		return t.Path == other.Path
	}
	return t.Title == other.Title && t.Artist == other.Artist
}

func (t *Info) String() string {
	if t == nil {
		return ""
	}
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// IDForPath derives a stable song id from the absolute file path.
func IDForPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:8])
}

// FromFile reads the tags of a local audio file. Files without tags still
// produce an Info titled after the file name. Duration is left to the
// decoder.
func FromFile(path string) (*Info, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info := &Info{
		ID:    IDForPath(abs),
		Path:  abs,
		Title: strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
	}

	metadata, err := tag.ReadFrom(file)
	if err != nil || metadata == nil {
		return info, nil
	}

	if title := strings.TrimSpace(metadata.Title()); title != "" {
		info.Title = title
	}
	if artist := strings.TrimSpace(metadata.Artist()); artist != "" {
		info.Artist = artist
	} else if albumArtist := strings.TrimSpace(metadata.AlbumArtist()); albumArtist != "" {
		info.Artist = albumArtist
	}
	info.Album = strings.TrimSpace(metadata.Album())

	if picture := metadata.Picture(); picture != nil {
		info.Artwork = picture.Data
	}

	return info, nil
}
