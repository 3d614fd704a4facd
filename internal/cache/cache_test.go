package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*DiskCache, *time.Time) {
	t.Helper()

	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestDiskCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Set("Band", "Song", &LyricEntry{Lyrics: "[00:01.00]x", Synced: true}))

	entry, err := c.Get("band", "  SONG ")
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00]x", entry.Lyrics)
	assert.True(t, entry.Synced)
	assert.Equal(t, uint8(cacheVersion), entry.Version)

	// returned entries are copies
	entry.Lyrics = "changed"
	again, err := c.Get("Band", "Song")
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00]x", again.Lyrics)
}

func TestDiskCache_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir, time.Hour)
	require.NoError(t, err)
	require.NoError(t, first.Set("Band", "Song", &LyricEntry{Lyrics: "words"}))

	second, err := New(dir, time.Hour)
	require.NoError(t, err)

	entry, err := second.Get("Band", "Song")
	require.NoError(t, err)
	assert.Equal(t, "words", entry.Lyrics)
}

func TestDiskCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get("Band", "Nothing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get("", "Song")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDiskCache_Expiry(t *testing.T) {
	c, now := newTestCache(t)
	require.NoError(t, c.Set("Band", "Song", &LyricEntry{Lyrics: "words"}))

	*now = now.Add(2 * time.Hour)

	_, err := c.Get("Band", "Song")
	assert.ErrorIs(t, err, ErrCacheExpired)

	count, _, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDiskCache_UpdateOffsetKeepsExpiry(t *testing.T) {
	c, now := newTestCache(t)
	require.NoError(t, c.Set("Band", "Song", &LyricEntry{Lyrics: "words"}))
	before, err := c.Get("Band", "Song")
	require.NoError(t, err)

	*now = now.Add(30 * time.Minute)
	require.NoError(t, c.UpdateOffset("Band", "Song", 1.2))

	after, err := c.Get("Band", "Song")
	require.NoError(t, err)
	assert.Equal(t, 1.2, after.SyncOffset)
	assert.Equal(t, before.ExpiresAt, after.ExpiresAt)

	assert.ErrorIs(t, c.UpdateOffset("Band", "Other", 1), ErrCacheMiss)
}

func TestDiskCache_CorruptFileIsDropped(t *testing.T) {
	c, _ := newTestCache(t)

	path := c.filePath(generateKey("Band", "Song"))
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	_, err := c.Get("Band", "Song")
	assert.ErrorIs(t, err, ErrCacheCorrupt)
	assert.NoFileExists(t, path)
}

func TestDiskCache_DeleteClearPrune(t *testing.T) {
	c, now := newTestCache(t)
	require.NoError(t, c.Set("A", "one", &LyricEntry{Lyrics: "1"}))
	require.NoError(t, c.Set("A", "two", &LyricEntry{Lyrics: "2"}))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "broken"+entryExt), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "notes.txt"), []byte("keep"), 0644))

	count, size, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Positive(t, size)

	entries, err := c.ListAll()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, c.Delete("A", "one"))
	_, err = c.Get("A", "one")
	assert.ErrorIs(t, err, ErrCacheMiss)

	pruned, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	*now = now.Add(2 * time.Hour)
	pruned, err = c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	require.NoError(t, c.Set("B", "three", &LyricEntry{Lyrics: "3"}))
	require.NoError(t, c.Clear())
	count, _, err = c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.FileExists(t, filepath.Join(c.Dir(), "notes.txt"))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemory()
	assert.Empty(t, c.Dir())

	require.NoError(t, c.Set("Band", "Song", &LyricEntry{Lyrics: "words"}))
	entry, err := c.Get("Band", "Song")
	require.NoError(t, err)
	assert.Equal(t, "words", entry.Lyrics)

	entries, err := c.ListAll()
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, c.Delete("Band", "Song"))
	_, err = c.Get("Band", "Song")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
