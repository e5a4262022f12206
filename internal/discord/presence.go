package discord

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/jfmyers9/tunecord/internal/player"
)

// Discord rejects text fields outside these bounds, counted in characters.
const (
	minFieldLen = 2
	maxFieldLen = 128
)

const (
	searchURL     = "https://yewtu.be/search"
	repositoryURL = "https://github.com/jfmyers9/tunecord"
)

// Options are the presence settings taken from configuration.
type Options struct {
	PlayerName  string // Shown as "Listening to <name>"
	HideButtons bool
}

// Build renders the activity for a player state. imageURL is the resolved
// cover art, empty when there is none. The result depends only on its
// arguments.
func Build(st player.State, imageURL string, opts Options) Activity {
	a := Activity{
		Type: ActivityTypeListening,
		Name: opts.PlayerName,
	}
	if st.Track == nil {
		return a
	}
	t := st.Track

	a.Details = fitField(t.Title)
	state := "by: " + t.Artist
	if t.Album != "" {
		state += ", in: " + t.Album
	}
	a.State = fitField(state)

	if timing := st.Anchors(); timing.HasStart() {
		start := timing.Start.UnixMilli()
		a.Timestamps = &Timestamps{Start: &start}
		if timing.HasEnd() {
			end := timing.End.UnixMilli()
			a.Timestamps.End = &end
		}
	}

	if imageURL != "" || t.Album != "" {
		a.Assets = &Assets{
			LargeImage: imageURL,
			LargeText:  fitField(t.Album),
		}
	}

	if !opts.HideButtons {
		a.Buttons = []Button{
			{Label: "Listen along", URL: listenURL(t)},
			{Label: "tunecord", URL: repositoryURL},
		}
	}
	return a
}

func listenURL(t *player.Track) string {
	q := url.Values{}
	q.Set("q", t.Title+" "+t.Artist)
	q.Set("type", "video")
	return searchURL + "?" + q.Encode()
}

// fitField pads short values and truncates long ones to Discord's limits.
// Empty values stay empty so the field is omitted.
func fitField(s string) string {
	if s == "" {
		return ""
	}
	if utf8.RuneCountInString(s) > maxFieldLen {
		runes := []rune(s)
		s = string(runes[:maxFieldLen-1]) + "…"
	}
	if n := utf8.RuneCountInString(s); n < minFieldLen {
		s += strings.Repeat(" ", minFieldLen-n)
	}
	return s
}
