package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"musicdeck.dev/musicdeck/internal/playback"
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "play a local file with lyrics",
	Long: `plays an mp3, flac or wav file and shows its lyrics. lyrics attached
with 'musicdeck lyrics attach' and .lrc files next to the audio file are
used before asking lrclib.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		log, closer := viewerLogger(cfg)
		defer closer.Close()

		if !playback.Supported(args[0]) {
			return fmt.Errorf("%s: %w", args[0], playback.ErrUnsupportedFormat)
		}

		p, err := playback.Open(args[0], log)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}

		if err := p.Start(); err != nil {
			p.Stop()
			return err
		}

		return runUI(p, cfg, log, true)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
