package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"musicdeck.dev/musicdeck/internal/cache"
	"musicdeck.dev/musicdeck/internal/config"
	"musicdeck.dev/musicdeck/internal/logger"
	"musicdeck.dev/musicdeck/internal/lyrics"
	"musicdeck.dev/musicdeck/internal/player"
	"musicdeck.dev/musicdeck/internal/store"
	"musicdeck.dev/musicdeck/internal/terminal"
	"musicdeck.dev/musicdeck/internal/ui"
)

// cliLogger logs to stderr for the one-shot commands.
func cliLogger(cfg *config.Config) *slog.Logger {
	lc := logger.DefaultConfig()
	lc.Level = logger.ParseLevel(cfg.LogLevel, lc.Level)
	lc.Output = os.Stderr
	return logger.NewLogger(lc)
}

// viewerLogger writes to the log file while the viewer owns the terminal.
func viewerLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	log, closer, err := logger.OpenFile(cfg.LogFile, logger.ParseLevel(cfg.LogLevel, slog.LevelInfo))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file: %v\n", err)
		return logger.Discard(), io.NopCloser(nil)
	}
	return log, closer
}

// openCache returns nil when caching is disabled.
func openCache(cfg *config.Config) (*cache.DiskCache, error) {
	if cfg.NoCache {
		return nil, nil
	}
	return openCacheDir(cfg)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.LyricsDataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open lyrics store: %w", err)
	}
	return st, nil
}

func newClient(cfg *config.Config, log *slog.Logger) (*lyrics.Client, error) {
	client, err := lyrics.NewClient(lyrics.ConfigFrom(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("failed to create lyrics client: %w", err)
	}
	return client, nil
}

func newService(cfg *config.Config, log *slog.Logger) (*lyrics.Service, error) {
	client, err := newClient(cfg, log)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	c, err := openCache(cfg)
	if err != nil {
		return nil, err
	}

	return lyrics.NewService(client, st, c, log), nil
}

// signalContext is cancelled on SIGINT, SIGTERM or SIGHUP.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
}

// runUI drives the viewer until the user quits or a signal arrives.
func runUI(source player.Source, cfg *config.Config, log *slog.Logger, quitOnFinish bool) error {
	defer source.Stop()

	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}

	model := ui.NewModel(ui.ModelConfig{
		Source:       source,
		Loader:       svc,
		Logger:       log,
		SyncOffset:   cfg.SyncOffset,
		HideHeader:   cfg.HideHeader,
		TermCaps:     terminal.Detect(os.Getenv, cfg.KittyGraphics),
		QuitOnFinish: quitOnFinish,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		terminal.Reset(os.Stdout)
		if ctx.Err() == nil {
			return fmt.Errorf("error running viewer: %w", err)
		}
	}

	return nil
}
