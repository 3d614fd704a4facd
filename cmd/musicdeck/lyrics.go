package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"musicdeck.dev/musicdeck/internal/colors"
	"musicdeck.dev/musicdeck/internal/lrc"
	"musicdeck.dev/musicdeck/internal/lyrics"
	"musicdeck.dev/musicdeck/internal/track"
)

const (
	searchLimit  = 10
	atContext    = 2
	ruleWidth    = 60
	fetchTimeout = time.Minute
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyrics search and management",
	Long: `search lrclib, save lyrics for songs, attach your own lrc files and
preview what the viewer would show.

songs are given either as a local audio file or as <artist> <title>.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "search lrclib",
	Long:  `search lrclib.net and list the matching records.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		client, err := newClient(cfg, cliLogger(cfg))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
		defer cancel()

		records, err := client.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("no results")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tARTIST\tTITLE\tALBUM\tDURATION\tLYRICS")
		for i, r := range records {
			if i == searchLimit {
				break
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.ArtistName, r.TrackName, r.AlbumName,
				colors.FormatDuration(time.Duration(r.Duration*float64(time.Second))),
				availability(&r))
		}
		w.Flush()

		if len(records) > searchLimit {
			fmt.Printf("\nshowing %d of %d results\n", searchLimit, len(records))
		}
		return nil
	},
}

var lyricsFetchCmd = &cobra.Command{
	Use:   "fetch <file> | <artist> <title>",
	Short: "download and save lyrics",
	Long: `fetch lyrics from lrclib.net, bypassing anything already saved, and
store them in the cache. for local files the lyrics are also saved under the
song id so they load without a network connection.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		trk, err := resolveTrack(args)
		if err != nil {
			return err
		}

		svc, err := newService(cfg, cliLogger(cfg))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
		defer cancel()

		fmt.Printf("fetching: %s\n", trk.String())

		outcome, err := svc.FetchAndSave(ctx, trk)
		if errors.Is(err, lyrics.ErrNotFound) {
			return fmt.Errorf("no lyrics available for %s", trk.String())
		}
		if err != nil {
			return fmt.Errorf("failed to fetch lyrics: %w", err)
		}

		switch {
		case outcome.Instrumental:
			fmt.Println("saved: instrumental")
		case outcome.Synced:
			fmt.Println("saved: synced lyrics")
		default:
			fmt.Println("saved: plain lyrics only (no timing)")
		}
		if outcome.Path != "" {
			fmt.Printf("file:  %s\n", outcome.Path)
		}
		return nil
	},
}

var lyricsPreviewCmd = &cobra.Command{
	Use:   "preview <file> | <artist> <title>",
	Short: "print lyrics with timestamps",
	Long:  `resolve lyrics the way the viewer does and print them with their timestamps.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, trk, err := loadLyrics(cmd, args)
		if err != nil {
			return err
		}

		fmt.Printf("\n%s\n", trk.String())
		if trk.Album != "" {
			fmt.Println(trk.Album)
		}
		fmt.Printf("source: %s\n", loaded.Source)
		fmt.Println(strings.Repeat("─", ruleWidth))

		if loaded.Instrumental {
			fmt.Println("\n[instrumental]")
			return nil
		}
		if loaded.Lyrics == nil || loaded.Lyrics.IsEmpty() {
			fmt.Println("\nno lyrics available")
			return nil
		}

		if loaded.Lyrics.Synced {
			fmt.Printf("\nsynced lyrics (%d lines):\n\n", len(loaded.Lyrics.Lines))
			for _, line := range loaded.Lyrics.Lines {
				fmt.Printf("[%s] %s\n", lrc.FormatTimestamp(line.Time), line.Text)
			}
		} else {
			fmt.Printf("\nplain lyrics (no timestamps):\n\n")
			for _, line := range loaded.Lyrics.Lines {
				fmt.Println(line.Text)
			}
		}

		if loaded.SyncOffset != 0 {
			fmt.Printf("\nsync offset: %+.2fs\n", loaded.SyncOffset)
		}
		return nil
	},
}

var lyricsAtCmd = &cobra.Command{
	Use:   "at <position> <file> | <position> <artist> <title>",
	Short: "show the line sung at a position",
	Long: `print the lyric line active at a playback position such as 1:23.45,
with the lines around it. the saved sync offset is applied.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := parsePosition(args[0])
		if err != nil {
			return err
		}

		loaded, _, err := loadLyrics(cmd, args[1:])
		if err != nil {
			return err
		}
		if loaded.Lyrics == nil || loaded.Lyrics.IsEmpty() {
			return errors.New("no lyric lines for this song")
		}

		adjusted := pos + time.Duration(loaded.SyncOffset*float64(time.Second))
		lines := loaded.Lyrics.Lines
		idx := lrc.Index(lines, adjusted)

		if idx < 0 {
			fmt.Printf("before the first line (starts at %s)\n", lrc.FormatTimestamp(lines[0].Time))
		}

		from := max(idx-atContext, 0)
		to := min(idx+atContext, len(lines)-1)
		for i := from; i <= to; i++ {
			marker := "  "
			if i == idx {
				marker = "> "
			}
			fmt.Printf("%s[%s] %s\n", marker, lrc.FormatTimestamp(lines[i].Time), lines[i].Text)
		}
		return nil
	},
}

var lyricsAttachCmd = &cobra.Command{
	Use:   "attach <audio-file> <lyrics-file>",
	Short: "use your own lrc file for a song",
	Long:  `attach an existing .lrc or plain text file to a local song. attached lyrics win over everything else.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		trk, err := track.FromFile(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}

		if err := st.Attach(trk.ID, args[1]); err != nil {
			return fmt.Errorf("failed to attach lyrics: %w", err)
		}

		fmt.Printf("attached %s to %s\n", args[1], trk.String())
		return nil
	},
}

var lyricsDetachCmd = &cobra.Command{
	Use:   "detach <audio-file>",
	Short: "forget the lyrics saved for a song",
	Long:  `remove the lyrics attached or saved for a local song. files musicdeck wrote are deleted, attached files are left alone.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		trk, err := track.FromFile(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}

		if err := st.Remove(trk.ID); err != nil {
			return fmt.Errorf("failed to detach lyrics: %w", err)
		}

		fmt.Printf("detached lyrics from %s\n", trk.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsFetchCmd)
	lyricsCmd.AddCommand(lyricsPreviewCmd)
	lyricsCmd.AddCommand(lyricsAtCmd)
	lyricsCmd.AddCommand(lyricsAttachCmd)
	lyricsCmd.AddCommand(lyricsDetachCmd)
}

// helper functions

// resolveTrack reads tags from a file argument or takes artist and title.
func resolveTrack(args []string) (*track.Info, error) {
	if len(args) == 1 {
		return track.FromFile(args[0])
	}
	return &track.Info{Artist: args[0], Title: args[1]}, nil
}

func loadLyrics(cmd *cobra.Command, args []string) (*lyrics.Loaded, *track.Info, error) {
	cfg := loadConfig(cmd)

	trk, err := resolveTrack(args)
	if err != nil {
		return nil, nil, err
	}

	svc, err := newService(cfg, cliLogger(cfg))
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
	defer cancel()

	loaded, err := svc.Load(ctx, trk)
	if errors.Is(err, lyrics.ErrNotFound) {
		return nil, nil, fmt.Errorf("no lyrics found for %s", trk.String())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load lyrics: %w", err)
	}
	return loaded, trk, nil
}

// parsePosition accepts lrc style timestamps (1:23.45) and go durations (83s).
func parsePosition(raw string) (time.Duration, error) {
	if pos, err := lrc.ParseTimestamp(raw); err == nil {
		return pos, nil
	}
	pos, err := time.ParseDuration(raw)
	if err != nil || pos < 0 {
		return 0, fmt.Errorf("invalid position %q", raw)
	}
	return pos, nil
}

func availability(r *lyrics.Record) string {
	switch {
	case r.Instrumental:
		return "instrumental"
	case r.HasSynced():
		return "synced"
	case r.HasPlain():
		return "plain"
	default:
		return "-"
	}
}
