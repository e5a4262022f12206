package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/tunecord/internal/artwork"
	"github.com/jfmyers9/tunecord/internal/config"
	"github.com/jfmyers9/tunecord/internal/daemon"
	"github.com/jfmyers9/tunecord/internal/discord"
	"github.com/jfmyers9/tunecord/internal/player"
)

func runDaemon(cmd *cobra.Command, args []string) error {
	// Load configuration; invalid values stop here, before any bus or IPC work
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.LogFile, cfg.LogLevel, cfg.Verbose)

	logger.Info().
		Str("version", version).
		Str("player", cfg.Player).
		Int("retries", cfg.Retries).
		Msg("Starting tunecord")

	conn, err := player.NewStdDBusClient()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	bus := player.NewMprisBus(conn, logger)
	defer bus.Close()

	cache, err := artwork.OpenCache(cfg.ArtCache)
	if err != nil {
		return fmt.Errorf("failed to open cover art cache: %w", err)
	}
	defer cache.Close()

	source := player.NewSource(bus, cfg.Player, cfg.ResubscribeInterval, logger)
	resolver := artwork.NewResolver(cache, artwork.NewTmpfilesUploader(cfg.UploadURL), logger)
	client := discord.NewClient(cfg.AppID, cfg.Retries, logger)

	d := daemon.New(daemon.Config{
		SeekTolerance: cfg.SeekTolerance,
		Art: artwork.Options{
			Resize: !cfg.SkipResize,
			Width:  cfg.Size.Width,
			Height: cfg.Size.Height,
		},
		Presence: discord.Options{
			PlayerName:  cfg.Player,
			HideButtons: cfg.HideButtons,
		},
	}, source, resolver, client, logger)

	// Run daemon (blocks until shutdown signal or connection failure)
	if err := d.Run(); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}
	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string, verbose bool) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
