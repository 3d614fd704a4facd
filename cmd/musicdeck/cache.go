package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"musicdeck.dev/musicdeck/internal/cache"
	"musicdeck.dev/musicdeck/internal/config"
	"musicdeck.dev/musicdeck/internal/lrc"
)

const maxSuggestions = 5

var (
	// flags for cache list
	cacheSortBy  string
	cacheConfirm bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyrics cache",
	Long:  `manage cached lyrics data, including viewing statistics, listing entries, and clearing the cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	Long:  `display cache statistics including number of entries, total size, and cache location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openDiskCache(cmd)
		if err != nil {
			return err
		}

		count, sizeBytes, err := diskCache.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		fmt.Println("cache statistics:")
		fmt.Printf("  location: %s\n", diskCache.Dir())
		fmt.Printf("  entries:  %d\n", count)
		fmt.Printf("  size:     %s\n", formatBytes(sizeBytes))

		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all cached songs",
	Long:  `list all songs in the cache with their sync offsets and cache date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openDiskCache(cmd)
		if err != nil {
			return err
		}

		entries, err := diskCache.ListAll()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		sortCacheEntries(entries, cacheSortBy)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ARTIST\tTITLE\tLYRICS\tSYNC OFFSET\tCACHED")

		for _, entry := range entries {
			syncStr := fmt.Sprintf("%+.1fs", entry.SyncOffset)
			if entry.SyncOffset == 0 {
				syncStr = "-"
			}
			cacheDate := time.Unix(entry.CreatedAt, 0).Format("2006-01-02")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", entry.ArtistName, entry.TrackName, entryKind(entry), syncStr, cacheDate)
		}

		w.Flush()

		fmt.Printf("\ntotal: %d songs\n", len(entries))

		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <artist> <title>",
	Short: "show cached entry for specific song",
	Long:  `display detailed information about a cached song including lyrics and sync offset.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist := args[0]
		title := args[1]

		diskCache, err := openDiskCache(cmd)
		if err != nil {
			return err
		}

		entry, err := diskCache.Get(artist, title)
		if err != nil {
			return notCachedError(diskCache, artist, title, err)
		}

		fmt.Printf("artist:       %s\n", entry.ArtistName)
		fmt.Printf("title:        %s\n", entry.TrackName)
		fmt.Printf("album:        %s\n", entry.AlbumName)
		fmt.Printf("duration:     %.1fs\n", entry.Duration)
		fmt.Printf("sync offset:  %+.2fs\n", entry.SyncOffset)
		fmt.Printf("instrumental: %v\n", entry.Instrumental)
		if entry.Source != "" {
			fmt.Printf("source:       %s\n", entry.Source)
		}
		fmt.Printf("cached:       %s\n", time.Unix(entry.CreatedAt, 0).Format("2006-01-02 15:04:05"))
		fmt.Printf("expires:      %s\n", time.Unix(entry.ExpiresAt, 0).Format("2006-01-02 15:04:05"))

		parsed := lrc.ParseString(entry.Lyrics)
		switch {
		case parsed.IsEmpty():
			fmt.Println("\nno lyrics available")
		case entry.Synced:
			fmt.Printf("\nsynced lyrics: %d lines\n", len(parsed.Lines))
		default:
			fmt.Printf("\nplain lyrics: %d lines (no sync data)\n", len(parsed.Lines))
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached lyrics data. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openDiskCache(cmd)
		if err != nil {
			return err
		}

		if !cacheConfirm {
			fmt.Print("are you sure you want to clear all cache? (y/n): ")
			var response string
			fmt.Scanln(&response)
			if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}

		if err := diskCache.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("cache cleared successfully")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired cache entries",
	Long:  `remove expired and unreadable cache entries to free up disk space.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openDiskCache(cmd)
		if err != nil {
			return err
		}

		pruned, err := diskCache.Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}

		fmt.Printf("removed %d expired entries\n", pruned)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <artist> <title>",
	Short: "remove specific song from cache",
	Long:  `remove a specific song from the cache by artist and title.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist := args[0]
		title := args[1]

		diskCache, err := openDiskCache(cmd)
		if err != nil {
			return err
		}

		if _, err := diskCache.Get(artist, title); err != nil {
			return notCachedError(diskCache, artist, title, err)
		}

		if err := diskCache.Delete(artist, title); err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}

		fmt.Printf("deleted '%s - %s' from cache\n", artist, title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)

	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, artist, title")
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

// helper functions

// openDiskCache opens the cache even when --no-cache is set, since these
// commands manage it directly.
func openDiskCache(cmd *cobra.Command) (*cache.DiskCache, error) {
	cfg := loadConfig(cmd)
	return openCacheDir(cfg)
}

func openCacheDir(cfg *config.Config) (*cache.DiskCache, error) {
	c, err := cache.New(cfg.LyricsCacheDir(), cache.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return c, nil
}

// notCachedError lists similar cached songs on stderr when there are any.
func notCachedError(diskCache *cache.DiskCache, artist string, title string, err error) error {
	suggestions := findSimilarCachedSongs(diskCache, artist, title)
	if len(suggestions) == 0 {
		return fmt.Errorf("song not found in cache: %w", err)
	}

	fmt.Fprintf(os.Stderr, "song not found in cache\n\n")
	fmt.Fprintf(os.Stderr, "did you mean one of these?\n")
	for _, s := range suggestions {
		fmt.Fprintf(os.Stderr, "  %s - %s\n", s.ArtistName, s.TrackName)
	}
	return errors.New("no exact match")
}

func entryKind(entry *cache.LyricEntry) string {
	switch {
	case entry.Instrumental:
		return "instrumental"
	case strings.TrimSpace(entry.Lyrics) == "":
		return "offset only"
	case entry.Synced:
		return "synced"
	default:
		return "plain"
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func sortCacheEntries(entries []*cache.LyricEntry, sortBy string) {
	switch sortBy {
	case "artist":
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].ArtistName) < strings.ToLower(entries[j].ArtistName)
		})
	case "title":
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].TrackName) < strings.ToLower(entries[j].TrackName)
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
	}
}

// findSimilarCachedSongs prefers the same artist with an overlapping title,
// then loose matches on both.
func findSimilarCachedSongs(diskCache *cache.DiskCache, artist string, title string) []*cache.LyricEntry {
	allEntries, err := diskCache.ListAll()
	if err != nil || len(allEntries) == 0 {
		return nil
	}

	artistLower := strings.ToLower(artist)
	titleLower := strings.ToLower(title)

	var exactArtist, loose []*cache.LyricEntry
	for _, entry := range allEntries {
		entryArtist := strings.ToLower(entry.ArtistName)
		entryTitle := strings.ToLower(entry.TrackName)

		if !overlaps(entryTitle, titleLower) {
			continue
		}
		if entryArtist == artistLower {
			exactArtist = append(exactArtist, entry)
		} else if overlaps(entryArtist, artistLower) {
			loose = append(loose, entry)
		}
	}

	matches := exactArtist
	if len(matches) == 0 {
		matches = loose
	}
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	return matches
}

func overlaps(a string, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
