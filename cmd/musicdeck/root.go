package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"musicdeck.dev/musicdeck/internal/config"
)

var (
	// global flags
	mprisService string
	syncOffset   float64
	hideHeader   bool
	lrclibURL    string
	noCache      bool
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "synchronized lyrics for your music",
	Long: `musicdeck shows time-synced lyrics for the song you are listening to.
it follows any mpris player on the session bus, or plays local mp3, flac and
wav files itself, and colors the lyrics from the album artwork.

when run without a subcommand, it starts the interactive viewer.`,
	Version: "1.0.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&mprisService, "mpris-service", "m", "", "mpris service name (e.g., org.mpris.MediaPlayer2.spotify)")
	flags.Float64VarP(&syncOffset, "sync-offset", "s", 0, "initial sync offset in seconds")
	flags.BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
	flags.StringVar(&lrclibURL, "lrclib-url", "", "custom lrclib api url")
	flags.BoolVar(&noCache, "no-cache", false, "disable the lyrics cache (always fetch fresh)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig reads the environment and applies any flags the user set.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()

	if mprisService != "" {
		cfg.MprisService = mprisService
	}
	if lrclibURL != "" {
		cfg.LrclibURL = lrclibURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if flagChanged(cmd, "sync-offset") {
		cfg.SyncOffset = syncOffset
	}
	if flagChanged(cmd, "hide-header") {
		cfg.HideHeader = hideHeader
	}
	if flagChanged(cmd, "no-cache") {
		cfg.NoCache = noCache
	}

	return cfg
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
