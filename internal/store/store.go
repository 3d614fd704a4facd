// Package store remembers which lyric file belongs to which song.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"musicdeck.dev/musicdeck/internal/lrc"
)

const indexFile = "index.json"

var (
	ErrNoLyrics   = errors.New("no lyrics stored for song")
	ErrInvalidID  = errors.New("invalid song id")
	ErrEmptyLyric = errors.New("lyric file has no lines")
)

// Entry is one song to lyric file association. Owned files live in the
// store directory and are deleted together with the entry.
type Entry struct {
	SongID string `json:"songId"`
	Path   string `json:"path"`
	Owned  bool   `json:"owned"`
}

type Store struct {
	mu      sync.Mutex
	dir     string
	entries map[string]Entry
}

// Open loads the index from dir, creating the directory if needed. A
// missing index is an empty store.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lyrics directory: %w", err)
	}

	s := &Store{
		dir:     dir,
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read lyrics index: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse lyrics index: %w", err)
	}

	for _, entry := range entries {
		s.entries[entry.SongID] = entry
	}

	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, indexFile)
}

// fileName uses plain token ids as they are. Any other id is hashed so
// that distinct ids never share a file; the "." separator cannot appear in
// a token id.
func fileName(id string) string {
	if isToken(id) {
		return "lyrics_" + id + ".lrc"
	}
	sum := sha256.Sum256([]byte(id))
	return "lyrics." + hex.EncodeToString(sum[:8]) + ".lrc"
}

func isToken(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return id != ""
}

// Save writes content as the song's lyric file and associates it.
func (s *Store) Save(id string, content string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", ErrInvalidID
	}

	path := filepath.Join(s.dir, fileName(id))
	if err := writeAtomic(path, []byte(content)); err != nil {
		return "", fmt.Errorf("failed to write lyrics file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, hadPrevious := s.entries[id]
	s.entries[id] = Entry{SongID: id, Path: path, Owned: true}

	if err := s.flush(); err != nil {
		return "", err
	}

	if hadPrevious && previous.Owned && previous.Path != path {
		_ = os.Remove(previous.Path)
	}

	return path, nil
}

// Attach associates an existing lyric file with a song. The file must parse
// into at least one line.
func (s *Store) Attach(id string, path string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	lyrics, err := readFile(abs)
	if err != nil {
		return err
	}
	if lyrics.IsEmpty() {
		return ErrEmptyLyric
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, hadPrevious := s.entries[id]
	s.entries[id] = Entry{SongID: id, Path: abs}

	if err := s.flush(); err != nil {
		return err
	}

	if hadPrevious && previous.Owned && previous.Path != abs {
		_ = os.Remove(previous.Path)
	}

	return nil
}

// Remove forgets the song. Files the store wrote itself are deleted.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return ErrNoLyrics
	}

	delete(s.entries, id)
	if err := s.flush(); err != nil {
		return err
	}

	if entry.Owned {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete lyrics file: %w", err)
		}
	}

	return nil
}

func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[id]
	return ok
}

func (s *Store) Path(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	return entry.Path, ok
}

func (s *Store) Read(id string) (*lrc.Lyrics, error) {
	path, ok := s.Path(id)
	if !ok {
		return nil, ErrNoLyrics
	}
	return readFile(path)
}

// List returns all entries ordered by song id.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sortedLocked()
}

func (s *Store) sortedLocked() []Entry {
	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SongID < entries[j].SongID
	})
	return entries
}

func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.sortedLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lyrics index: %w", err)
	}

	if err := writeAtomic(s.indexPath(), data); err != nil {
		return fmt.Errorf("failed to write lyrics index: %w", err)
	}

	return nil
}

func readFile(path string) (*lrc.Lyrics, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return lrc.Parse(file)
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
