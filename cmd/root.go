/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/tunecord/internal/config"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tunecord",
	Short: "Discord Rich Presence for MPRIS media players",
	Long: `tunecord mirrors what an MPRIS media player is playing into Discord
Rich Presence.

Run without a subcommand it follows the configured player on the session
bus, uploads local cover art to an image host, and keeps the Discord
activity in sync until interrupted. A clean shutdown clears the activity.

Flags can also be set in ~/.config/tunecord/config.yaml or through
TUNECORD_* environment variables (e.g. TUNECORD_APP_ID).`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDaemon,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Log file path (default: stderr)")
	flags.StringP("player", "p", config.DefaultPlayer, "MPRIS player name to follow")
	flags.String("app-id", config.DefaultAppID, "Discord application ID")
	flags.IntP("retries", "r", config.DefaultRetries, "Consecutive Discord connection attempts before giving up")
	flags.Bool("hide-button", false, "Do not show presence buttons")
	flags.Bool("no-resize", false, "Upload cover art without resizing it")
	flags.StringP("size", "s", config.DefaultSize, "Cover art size as WIDTHxHEIGHT")
	flags.Duration("seek-tolerance", config.DefaultSeekTolerance, "Position jump treated as a seek")
	flags.Duration("resubscribe-interval", config.DefaultResubscribeInterval, "Delay between attempts to find an absent player")
	flags.String("upload-url", config.DefaultUploadURL, "Image host upload endpoint for local cover art")
	flags.String("art-cache", config.DefaultArtCache, "Cover art cache database (\":memory:\" keeps it per process)")
}
