package main

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"musicdeck.dev/musicdeck/internal/player"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the interactive lyrics viewer",
	Long:  `follows an mpris player and shows its lyrics in real time.`,
	RunE:  runViewer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runViewer(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)

	log, closer := viewerLogger(cfg)
	defer closer.Close()

	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer bus.Close()

	mpris, err := player.NewMPRIS(bus, cfg.MprisService)
	if err != nil {
		return fmt.Errorf("failed to create player service: %w", err)
	}

	if err := mpris.Start(); err != nil {
		log.Warn("could not set up dbus signals, polling only", "error", err)
	}

	log.Info("viewer started", "service", cfg.MprisService)

	return runUI(mpris, cfg, log, false)
}
