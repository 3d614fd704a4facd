package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	cacheVersion = 2
	DefaultTTL   = 30 * 24 * time.Hour
	entryExt     = ".bin"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
)

// LyricEntry is what gets persisted for one artist/title pair.
type LyricEntry struct {
	Version      uint8
	TrackName    string
	ArtistName   string
	AlbumName    string
	Duration     float64
	Instrumental bool
	Synced       bool
	Lyrics       string
	Source       string
	SyncOffset   float64
	CreatedAt    int64
	ExpiresAt    int64
}

// DiskCache keeps entries in memory and, when it has a directory, as gob
// files on disk. An empty directory gives a memory-only cache.
type DiskCache struct {
	basePath string
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	memCache map[string]*LyricEntry
}

func New(dir string, ttl time.Duration) (*DiskCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &DiskCache{
		basePath: dir,
		ttl:      ttl,
		now:      time.Now,
		memCache: make(map[string]*LyricEntry),
	}

	if dir == "" {
		return c, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return c, nil
}

// NewMemory never touches the disk.
func NewMemory() *DiskCache {
	c, _ := New("", DefaultTTL)
	return c
}

func (c *DiskCache) Dir() string {
	return c.basePath
}

func generateKey(artist, title string) string {
	normalized := normalize(artist) + "|" + normalize(title)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:12])
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (c *DiskCache) filePath(key string) string {
	if c.basePath == "" {
		return ""
	}
	return filepath.Join(c.basePath, key+entryExt)
}

func (c *DiskCache) Get(artist, title string) (*LyricEntry, error) {
	if artist == "" || title == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(artist, title)
	now := c.now().Unix()

	c.mu.RLock()
	entry, exists := c.memCache[key]
	c.mu.RUnlock()

	if exists {
		if entry.ExpiresAt > now {
			return copyEntry(entry), nil
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}

	if c.basePath == "" {
		if exists {
			return nil, ErrCacheExpired
		}
		return nil, ErrCacheMiss
	}

	path := c.filePath(key)
	entry, err := readEntry(path)
	if err != nil {
		if errors.Is(err, ErrCacheCorrupt) {
			_ = os.Remove(path)
		}
		return nil, err
	}

	if entry.ExpiresAt <= now {
		_ = os.Remove(path)
		return nil, ErrCacheExpired
	}

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	return copyEntry(entry), nil
}

// Set stores entry and restarts its ttl.
func (c *DiskCache) Set(artist, title string, entry *LyricEntry) error {
	if artist == "" || title == "" || entry == nil {
		return errors.New("invalid cache entry")
	}

	now := c.now()
	stored := copyEntry(entry)
	stored.Version = cacheVersion
	stored.CreatedAt = now.Unix()
	stored.ExpiresAt = now.Add(c.ttl).Unix()

	return c.put(generateKey(artist, title), stored)
}

// UpdateOffset changes the sync offset of an existing entry without
// extending its lifetime.
func (c *DiskCache) UpdateOffset(artist, title string, offset float64) error {
	entry, err := c.Get(artist, title)
	if err != nil {
		return err
	}

	entry.SyncOffset = offset
	return c.put(generateKey(artist, title), entry)
}

func (c *DiskCache) put(key string, entry *LyricEntry) error {
	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	return writeEntry(c.filePath(key), entry)
}

func copyEntry(entry *LyricEntry) *LyricEntry {
	dup := *entry
	return &dup
}

func readEntry(path string) (*LyricEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer file.Close()

	var entry LyricEntry
	if err := gob.NewDecoder(file).Decode(&entry); err != nil {
		return nil, ErrCacheCorrupt
	}

	// older layouts are dropped rather than migrated
	if entry.Version != cacheVersion {
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

// writeEntry writes to a temp file and renames it into place.
func writeEntry(path string, entry *LyricEntry) error {
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(file).Encode(entry); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

func (c *DiskCache) Delete(artist, title string) error {
	if artist == "" || title == "" {
		return errors.New("invalid artist or title")
	}

	key := generateKey(artist, title)

	c.mu.Lock()
	delete(c.memCache, key)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	err := os.Remove(c.filePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (c *DiskCache) Clear() error {
	c.mu.Lock()
	c.memCache = make(map[string]*LyricEntry)
	c.mu.Unlock()

	return c.eachFile(func(path string, _ os.DirEntry) {
		_ = os.Remove(path)
	})
}

// Prune removes expired and unreadable files and returns how many went.
func (c *DiskCache) Prune() (int, error) {
	pruned := 0
	now := c.now().Unix()

	err := c.eachFile(func(path string, _ os.DirEntry) {
		entry, err := readEntry(path)
		if err != nil || entry.ExpiresAt <= now {
			_ = os.Remove(path)
			pruned++
		}
	})

	c.mu.Lock()
	for key, entry := range c.memCache {
		if entry.ExpiresAt <= now {
			delete(c.memCache, key)
		}
	}
	c.mu.Unlock()

	return pruned, err
}

func (c *DiskCache) Stats() (count int, sizeBytes int64, err error) {
	err = c.eachFile(func(_ string, dirEntry os.DirEntry) {
		info, infoErr := dirEntry.Info()
		if infoErr != nil {
			return
		}
		count++
		sizeBytes += info.Size()
	})
	return count, sizeBytes, err
}

// ListAll returns every readable entry on disk, or the memory entries for a
// memory-only cache.
func (c *DiskCache) ListAll() ([]*LyricEntry, error) {
	if c.basePath == "" {
		c.mu.RLock()
		defer c.mu.RUnlock()

		result := make([]*LyricEntry, 0, len(c.memCache))
		for _, entry := range c.memCache {
			result = append(result, copyEntry(entry))
		}
		return result, nil
	}

	var result []*LyricEntry
	err := c.eachFile(func(path string, _ os.DirEntry) {
		entry, err := readEntry(path)
		if err == nil {
			result = append(result, entry)
		}
	})

	return result, err
}

func (c *DiskCache) eachFile(fn func(path string, entry os.DirEntry)) error {
	if c.basePath == "" {
		return nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entryExt) {
			continue
		}
		fn(filepath.Join(c.basePath, entry.Name()), entry)
	}

	return nil
}
