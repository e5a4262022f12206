/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/tunecord/internal/config"
	"github.com/jfmyers9/tunecord/internal/player"
)

const defaultNowFormat = "{{.Artist}} - {{.Title}}"

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the track the configured player is playing",
	Long: `Query the configured MPRIS player once and display the current track.

The output is a Go template. Available fields: .Title, .Artist, .Album,
.Length, .Position, .Status

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or player not running`,
	Args: cobra.NoArgs,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	// Add format flag
	nowCmd.Flags().StringP("format", "f", defaultNowFormat, "Output format template")
	// Add width flag to set fixed output width
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled)")
}

// nowView is the data available to the output template
type nowView struct {
	Title    string
	Artist   string
	Album    string
	Length   time.Duration
	Position time.Duration
	Status   string
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	conn, err := player.NewStdDBusClient()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	bus := player.NewMprisBus(conn, zerolog.Nop())
	defer bus.Close()

	st, err := bus.Query(ctx, cfg.Player)
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}

	// If not playing, exit with code 1
	if st == nil || st.Track == nil || st.Status != player.StatusPlaying {
		os.Exit(1)
		return nil
	}

	format, _ := cmd.Flags().GetString("format")
	output, err := formatTrack(st, format)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	fmt.Println(padToWidth(output, width))
	return nil
}

// formatTrack applies the template to the player state
func formatTrack(st *player.State, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	view := nowView{Status: st.Status.String(), Position: st.Position}
	if st.Track != nil {
		view.Title = st.Track.Title
		view.Artist = st.Track.Artist
		view.Album = st.Track.Album
		view.Length = st.Track.Length
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text // no padding requested
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		// Truncate with "..." suffix
		// We need to manually truncate and add "..." then pad if needed
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			// If width is too small, just return ellipsis truncated to width
			return runewidth.Truncate(ellipsis, width, "")
		}

		// Truncate to (width - ellipsisWidth) and add ellipsis
		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		// Ensure we're exactly at the target width (in case truncate was imprecise)
		resultWidth := runewidth.StringWidth(result)
		if resultWidth < width {
			padding := strings.Repeat(" ", width-resultWidth)
			return result + padding
		} else if resultWidth > width {
			// Shouldn't happen, but handle it just in case
			return runewidth.Truncate(result, width, "")
		}
		return result
	} else if currentWidth < width {
		// Pad with spaces
		padding := strings.Repeat(" ", width-currentWidth)
		return text + padding
	}

	return text // exactly the right width
}
