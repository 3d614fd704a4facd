package lyrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"musicdeck.dev/musicdeck/internal/cache"
	"musicdeck.dev/musicdeck/internal/logger"
	"musicdeck.dev/musicdeck/internal/lrc"
	"musicdeck.dev/musicdeck/internal/store"
	"musicdeck.dev/musicdeck/internal/track"
)

const (
	SourceStore   = "store"
	SourceSidecar = "sidecar"
	SourceCache   = "cache"

	unknownArtistKey = "unknown"
)

var sidecarExts = []string{".lrc", ".txt"}

// Fetcher is the remote half of the service. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (*Result, error)
}

// Loaded is what the viewer needs to show lyrics for a track.
type Loaded struct {
	Lyrics       *lrc.Lyrics
	Source       string
	SyncOffset   float64
	Instrumental bool
}

type FetchOutcome struct {
	Synced       bool
	Instrumental bool
	// Path is the saved lyric file, empty when the track has no song id.
	Path string
}

// Service resolves lyrics from attached files, sidecar files, the cache and
// finally the lyrics server. Store and cache are optional.
type Service struct {
	fetcher Fetcher
	store   *store.Store
	cache   *cache.DiskCache
	log     *slog.Logger
}

func NewService(fetcher Fetcher, st *store.Store, c *cache.DiskCache, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		fetcher: fetcher,
		store:   st,
		cache:   c,
		log:     log.With("component", "lyrics"),
	}
}

func (s *Service) Load(ctx context.Context, t *track.Info) (*Loaded, error) {
	if !t.IsValid() {
		return nil, ErrInvalidQuery
	}

	if loaded := s.fromStore(t); loaded != nil {
		return loaded, nil
	}

	if loaded := s.fromSidecar(t); loaded != nil {
		return loaded, nil
	}

	if loaded := s.fromCache(t); loaded != nil {
		return loaded, nil
	}

	result, err := s.fetcher.Fetch(ctx, queryFor(t))
	if err != nil {
		return nil, err
	}

	if _, err := s.persist(t, result); err != nil {
		s.log.Warn("failed to save fetched lyrics", "track", t.String(), "error", err)
	}

	return &Loaded{
		Lyrics:       lrc.ParseString(result.Lyrics),
		Source:       result.Source,
		SyncOffset:   s.offsetFor(t),
		Instrumental: result.Instrumental,
	}, nil
}

// FetchAndSave always asks the lyrics server and stores what it finds.
func (s *Service) FetchAndSave(ctx context.Context, t *track.Info) (FetchOutcome, error) {
	if !t.IsValid() {
		return FetchOutcome{}, ErrInvalidQuery
	}

	result, err := s.fetcher.Fetch(ctx, queryFor(t))
	if err != nil {
		return FetchOutcome{}, err
	}

	path, err := s.persist(t, result)
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("failed to save lyrics: %w", err)
	}

	s.log.Info("lyrics saved", "track", t.String(), "synced", result.Synced, "path", path)

	return FetchOutcome{
		Synced:       result.Synced,
		Instrumental: result.Instrumental,
		Path:         path,
	}, nil
}

// SaveOffset remembers the sync offset for the track in the cache.
func (s *Service) SaveOffset(t *track.Info, offset float64) error {
	if s.cache == nil || !t.IsValid() {
		return nil
	}

	artist, title := cacheKey(t)
	err := s.cache.UpdateOffset(artist, title, offset)
	if err == nil {
		return nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheExpired) {
		return err
	}

	// no cached lyrics yet, keep an entry that only carries the offset
	return s.cache.Set(artist, title, &cache.LyricEntry{
		TrackName:  t.Title,
		ArtistName: t.Artist,
		AlbumName:  t.Album,
		Duration:   t.Duration.Seconds(),
		SyncOffset: offset,
	})
}

func (s *Service) fromStore(t *track.Info) *Loaded {
	if s.store == nil || t.ID == "" {
		return nil
	}

	lyrics, err := s.store.Read(t.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNoLyrics) {
			s.log.Warn("failed to read stored lyrics", "id", t.ID, "error", err)
		}
		return nil
	}
	if lyrics.IsEmpty() {
		return nil
	}

	return &Loaded{Lyrics: lyrics, Source: SourceStore, SyncOffset: s.offsetFor(t)}
}

func (s *Service) fromSidecar(t *track.Info) *Loaded {
	if t.Path == "" {
		return nil
	}

	base := strings.TrimSuffix(t.Path, filepath.Ext(t.Path))
	for _, ext := range sidecarExts {
		lyrics, err := readLyricFile(base + ext)
		if err != nil || lyrics.IsEmpty() {
			continue
		}
		return &Loaded{Lyrics: lyrics, Source: SourceSidecar, SyncOffset: s.offsetFor(t)}
	}

	return nil
}

func (s *Service) fromCache(t *track.Info) *Loaded {
	if s.cache == nil {
		return nil
	}

	artist, title := cacheKey(t)
	entry, err := s.cache.Get(artist, title)
	if err != nil {
		return nil
	}

	// offset-only entries
	if entry.Lyrics == "" && !entry.Instrumental {
		return nil
	}

	return &Loaded{
		Lyrics:       lrc.ParseString(entry.Lyrics),
		Source:       SourceCache,
		SyncOffset:   entry.SyncOffset,
		Instrumental: entry.Instrumental,
	}
}

func (s *Service) offsetFor(t *track.Info) float64 {
	if s.cache == nil {
		return 0
	}

	artist, title := cacheKey(t)
	entry, err := s.cache.Get(artist, title)
	if err != nil {
		return 0
	}
	return entry.SyncOffset
}

// persist writes result to the cache and, for tracks with a song id, to the
// store. It returns the stored file path.
func (s *Service) persist(t *track.Info, result *Result) (string, error) {
	if s.cache != nil {
		artist, title := cacheKey(t)
		entry := &cache.LyricEntry{
			TrackName:    result.TrackName,
			ArtistName:   result.ArtistName,
			AlbumName:    result.AlbumName,
			Duration:     result.Duration.Seconds(),
			Instrumental: result.Instrumental,
			Synced:       result.Synced,
			Lyrics:       result.Lyrics,
			Source:       result.Source,
			SyncOffset:   s.offsetFor(t),
		}
		if err := s.cache.Set(artist, title, entry); err != nil {
			s.log.Warn("failed to cache lyrics", "track", t.String(), "error", err)
		}
	}

	if s.store == nil || t.ID == "" || result.Lyrics == "" {
		return "", nil
	}

	return s.store.Save(t.ID, result.Lyrics)
}

func queryFor(t *track.Info) Query {
	return Query{
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Duration: t.Duration,
	}
}

func cacheKey(t *track.Info) (string, string) {
	artist := t.Artist
	if strings.TrimSpace(artist) == "" {
		artist = unknownArtistKey
	}
	return artist, t.Title
}

func readLyricFile(path string) (*lrc.Lyrics, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return lrc.Parse(file)
}
