package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicdeck.dev/musicdeck/internal/cache"
	"musicdeck.dev/musicdeck/internal/lyrics"
)

func TestParsePosition(t *testing.T) {
	pos, err := parsePosition("1:23.45")
	require.NoError(t, err)
	assert.Equal(t, time.Minute+23450*time.Millisecond, pos)

	pos, err = parsePosition("83s")
	require.NoError(t, err)
	assert.Equal(t, 83*time.Second, pos)

	_, err = parsePosition("soon")
	assert.Error(t, err)

	_, err = parsePosition("-5s")
	assert.Error(t, err)
}

func TestResolveTrack_ArtistAndTitle(t *testing.T) {
	trk, err := resolveTrack([]string{"Artist", "Song"})
	require.NoError(t, err)
	assert.Equal(t, "Artist", trk.Artist)
	assert.Equal(t, "Song", trk.Title)
	assert.Empty(t, trk.ID)
}

func TestResolveTrack_MissingFile(t *testing.T) {
	_, err := resolveTrack([]string{"/does/not/exist.mp3"})
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}

func TestSortCacheEntries(t *testing.T) {
	entries := []*cache.LyricEntry{
		{ArtistName: "b", TrackName: "z", CreatedAt: 1},
		{ArtistName: "A", TrackName: "y", CreatedAt: 3},
		{ArtistName: "c", TrackName: "X", CreatedAt: 2},
	}

	sortCacheEntries(entries, "artist")
	assert.Equal(t, "A", entries[0].ArtistName)

	sortCacheEntries(entries, "title")
	assert.Equal(t, "X", entries[0].TrackName)

	sortCacheEntries(entries, "date")
	assert.Equal(t, int64(3), entries[0].CreatedAt)
	assert.Equal(t, int64(1), entries[2].CreatedAt)
}

func TestFindSimilarCachedSongs(t *testing.T) {
	c := cache.NewMemory()
	require.NoError(t, c.Set("Queen", "Bohemian Rhapsody", &cache.LyricEntry{ArtistName: "Queen", TrackName: "Bohemian Rhapsody"}))
	require.NoError(t, c.Set("Queen", "Killer Queen", &cache.LyricEntry{ArtistName: "Queen", TrackName: "Killer Queen"}))
	require.NoError(t, c.Set("Queen Tribute", "Bohemian Rhapsody Live", &cache.LyricEntry{ArtistName: "Queen Tribute", TrackName: "Bohemian Rhapsody Live"}))

	exact := findSimilarCachedSongs(c, "queen", "bohemian")
	require.Len(t, exact, 1)
	assert.Equal(t, "Bohemian Rhapsody", exact[0].TrackName)

	loose := findSimilarCachedSongs(c, "quee", "rhapsody")
	assert.Len(t, loose, 2)

	assert.Empty(t, findSimilarCachedSongs(c, "abba", "waterloo"))
}

func TestEntryKind(t *testing.T) {
	assert.Equal(t, "instrumental", entryKind(&cache.LyricEntry{Instrumental: true}))
	assert.Equal(t, "offset only", entryKind(&cache.LyricEntry{SyncOffset: 1}))
	assert.Equal(t, "synced", entryKind(&cache.LyricEntry{Lyrics: "[00:01.00]a", Synced: true}))
	assert.Equal(t, "plain", entryKind(&cache.LyricEntry{Lyrics: "a"}))
}

func TestAvailability(t *testing.T) {
	assert.Equal(t, "instrumental", availability(&lyrics.Record{Instrumental: true}))
	assert.Equal(t, "synced", availability(&lyrics.Record{SyncedLyrics: "[00:01.00]a", PlainLyrics: "a"}))
	assert.Equal(t, "plain", availability(&lyrics.Record{PlainLyrics: "a"}))
	assert.Equal(t, "-", availability(&lyrics.Record{}))
}

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("MUSICDECK_LRCLIB_URL", "http://env.example/api")
	t.Setenv("MUSICDECK_SYNC_OFFSET", "1.5")

	require.NoError(t, rootCmd.PersistentFlags().Set("lrclib-url", "http://flag.example/api"))
	require.NoError(t, rootCmd.PersistentFlags().Set("sync-offset", "-0.5"))
	t.Cleanup(func() {
		lrclibURL = ""
		syncOffset = 0
		rootCmd.PersistentFlags().Lookup("sync-offset").Changed = false
	})

	cfg := loadConfig(rootCmd)

	assert.Equal(t, "http://flag.example/api", cfg.LrclibURL)
	assert.Equal(t, -0.5, cfg.SyncOffset)
}
