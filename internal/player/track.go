package player

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Track is an immutable snapshot of the metadata a player reports for the
// current item.
type Track struct {
	Title  string        // Track title
	Artist string        // First listed artist
	Album  string        // Album name
	Length time.Duration // Total length, zero when unknown
	Art    ArtRef        // Cover art reference
}

// SameIdentity reports whether two tracks name the same item.
func (t Track) SameIdentity(o Track) bool {
	return t.Title == o.Title && t.Artist == o.Artist && t.Album == o.Album
}

// Status represents the playback status of the player
type Status int

const (
	StatusStopped Status = iota // Nothing playing
	StatusPlaying               // Track is currently playing
	StatusPaused                // Track is paused
)

// String returns a human-readable representation of the Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ParseStatus maps an MPRIS PlaybackStatus value. Unknown values are
// treated as stopped.
func ParseStatus(s string) Status {
	switch s {
	case "Playing":
		return StatusPlaying
	case "Paused":
		return StatusPaused
	default:
		return StatusStopped
	}
}

// ArtKind tags where a cover art reference points.
type ArtKind int

const (
	ArtNone ArtKind = iota
	ArtLocal
	ArtRemote
)

// ArtRef is a cover art reference: a local file path, a remote URL, or nothing.
type ArtRef struct {
	Kind     ArtKind
	Location string // File path for ArtLocal, URL for ArtRemote
}

// ParseArtURL converts an mpris:artUrl value into an ArtRef. file:// URIs and
// absolute paths are local; http and https URLs are remote; everything else,
// including the empty string, is no art at all.
func ParseArtURL(raw string) ArtRef {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ArtRef{}
	}
	if filepath.IsAbs(raw) {
		return ArtRef{Kind: ArtLocal, Location: filepath.Clean(raw)}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ArtRef{}
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		if u.Path == "" {
			return ArtRef{}
		}
		return ArtRef{Kind: ArtLocal, Location: filepath.Clean(u.Path)}
	case "http", "https":
		if u.Host == "" {
			return ArtRef{}
		}
		return ArtRef{Kind: ArtRemote, Location: raw}
	default:
		return ArtRef{}
	}
}

// State is a snapshot of the player at a point in time.
type State struct {
	Status        Status        // Playback status
	Track         *Track        // Current track, nil when the player has none
	Position      time.Duration // Playback offset when the snapshot was taken
	PositionKnown bool          // False when the player does not report a position
	At            time.Time     // When the snapshot was taken
}

// Timing holds the presence anchors derived from a State. End is zero when
// no countdown should be shown.
type Timing struct {
	Start time.Time
	End   time.Time
}

// HasStart reports whether a start anchor is present.
func (t Timing) HasStart() bool { return !t.Start.IsZero() }

// HasEnd reports whether an end anchor is present.
func (t Timing) HasEnd() bool { return !t.End.IsZero() }

// Anchors derives the presence timing for the state: start is the snapshot
// time minus the position, and for playing tracks of known length the end is
// start plus length. Without a known position there are no anchors.
func (s State) Anchors() Timing {
	if s.Track == nil || !s.PositionKnown {
		return Timing{}
	}
	t := Timing{Start: s.At.Add(-s.Position)}
	if s.Status == StatusPlaying && s.Track.Length > 0 {
		t.End = t.Start.Add(s.Track.Length)
	}
	return t
}

// EventKind distinguishes a state update from player absence.
type EventKind int

const (
	EventUpdated EventKind = iota
	EventUnavailable
)

// Event is emitted by a Source for every notification on the bus.
type Event struct {
	Kind  EventKind
	State State // Valid when Kind is EventUpdated
}

// Updated wraps a state into an event.
func Updated(s State) Event { return Event{Kind: EventUpdated, State: s} }

// Unavailable is the event emitted while the player is absent.
func Unavailable() Event { return Event{Kind: EventUnavailable} }

// Bus is the media-control bus contract consumed by the event source.
type Bus interface {
	// Subscribe returns a channel that receives a value whenever the named
	// player reports a change. The channel is closed when the player goes
	// away or ctx is done.
	Subscribe(ctx context.Context, name string) (<-chan struct{}, error)

	// Query returns the current state of the named player, or nil if no such
	// player is on the bus.
	Query(ctx context.Context, name string) (*State, error)
}
