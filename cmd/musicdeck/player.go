package main

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"musicdeck.dev/musicdeck/internal/colors"
	"musicdeck.dev/musicdeck/internal/player"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "mpris player utilities",
	Long:  `discover and inspect mpris-compatible music players on your system.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible music players currently running on the system.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		services, err := player.ListPlayers(bus)
		if err != nil {
			return err
		}

		if len(services) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println("\ncheck if your music player is running and supports mpris")
			return nil
		}

		fmt.Printf("found %d mpris player(s):\n\n", len(services))
		for _, service := range services {
			identity := ""
			if mpris, err := player.NewMPRIS(bus, service); err == nil {
				identity, _ = mpris.Identity()
			}
			if identity != "" {
				fmt.Printf("  %s (%s)\n", service, identity)
			} else {
				fmt.Printf("  %s\n", service)
			}
		}

		fmt.Println("\nuse --mpris-service flag to specify which player to use")

		return nil
	},
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show currently playing track",
	Long:  `display information about the track playing in the selected mpris player.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		mpris, err := player.NewMPRIS(bus, cfg.MprisService)
		if err != nil {
			return fmt.Errorf("failed to connect to player: %w", err)
		}

		trk, err := mpris.CurrentTrack()
		if errors.Is(err, player.ErrNoTrack) {
			fmt.Println("no track currently playing")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", cfg.MprisService, err)
		}

		if identity, err := mpris.Identity(); err == nil {
			fmt.Printf("player:   %s\n", identity)
		}
		fmt.Printf("title:    %s\n", trk.Title)
		fmt.Printf("artist:   %s\n", trk.Artist)
		if trk.Album != "" {
			fmt.Printf("album:    %s\n", trk.Album)
		}
		if trk.Duration > 0 {
			fmt.Printf("duration: %s\n", colors.FormatDuration(trk.Duration))
		}
		if trk.Path != "" {
			fmt.Printf("file:     %s\n", trk.Path)
		}
		if trk.ArtworkURL != "" {
			fmt.Printf("artwork:  %s\n", trk.ArtworkURL)
		}

		playing, err := mpris.Playing()
		switch {
		case err != nil:
			fmt.Printf("state:    unknown\n")
		case playing:
			fmt.Printf("state:    playing\n")
		default:
			fmt.Printf("state:    paused\n")
		}

		if pos, err := mpris.Position(); err == nil && pos > 0 {
			fmt.Printf("position: %s\n", colors.FormatDuration(pos))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerCurrentCmd)
}
