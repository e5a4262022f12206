package player

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisPath       = "/org/mpris/MediaPlayer2"
	playerIface     = "org.mpris.MediaPlayer2.Player"
	propertiesIface = "org.freedesktop.DBus.Properties"
	busIface        = "org.freedesktop.DBus"

	sigPropertiesChanged = propertiesIface + ".PropertiesChanged"
	sigSeeked            = playerIface + ".Seeked"
	sigNameOwnerChanged  = busIface + ".NameOwnerChanged"
)

// BusName returns the well-known MPRIS bus name for a player identity.
func BusName(player string) string {
	if strings.HasPrefix(player, mprisPrefix) {
		return player
	}
	return mprisPrefix + player
}

// MprisBus implements Bus over the MPRIS D-Bus interface
type MprisBus struct {
	conn   DBusClient
	logger zerolog.Logger
	now    func() time.Time
}

// NewMprisBus wraps a D-Bus client
func NewMprisBus(conn DBusClient, logger zerolog.Logger) *MprisBus {
	return &MprisBus{
		conn:   conn,
		logger: logger.With().Str("component", "player").Logger(),
		now:    time.Now,
	}
}

// Close closes the underlying connection
func (b *MprisBus) Close() error {
	return b.conn.Close()
}

// Query returns the player's current state, or nil if it is not on the bus.
func (b *MprisBus) Query(ctx context.Context, name string) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	busName := BusName(name)
	names, err := b.conn.ListNames()
	if err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}
	if !slices.Contains(names, busName) {
		return nil, nil
	}

	metaVariant, err := b.conn.GetProperty(busName, mprisPath, playerIface+".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	statusVariant, err := b.conn.GetProperty(busName, mprisPath, playerIface+".PlaybackStatus")
	if err != nil {
		return nil, fmt.Errorf("failed to get playback status: %w", err)
	}

	// Position is optional; some players don't implement it.
	var position time.Duration
	var positionKnown bool
	if posVariant, err := b.conn.GetProperty(busName, mprisPath, playerIface+".Position"); err == nil {
		position, positionKnown = microseconds(posVariant)
	} else {
		b.logger.Debug().Err(err).Str("player", busName).Msg("Position unavailable")
	}

	status, _ := statusVariant.Value().(string)
	metadata, _ := metaVariant.Value().(map[string]dbus.Variant)

	st := &State{
		Status: ParseStatus(status),
		Track:  parseMetadata(metadata),
		At:     b.now(),
	}
	st.Position = clampPosition(position, st.Track)
	st.PositionKnown = positionKnown
	return st, nil
}

// Subscribe registers for change notifications from the named player.
func (b *MprisBus) Subscribe(ctx context.Context, name string) (<-chan struct{}, error) {
	busName := BusName(name)
	owner, err := b.conn.GetNameOwner(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", busName, err)
	}

	rules := [][]dbus.MatchOption{
		{
			dbus.WithMatchSender(busName),
			dbus.WithMatchObjectPath(mprisPath),
			dbus.WithMatchInterface(propertiesIface),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		{
			dbus.WithMatchSender(busName),
			dbus.WithMatchObjectPath(mprisPath),
			dbus.WithMatchInterface(playerIface),
			dbus.WithMatchMember("Seeked"),
		},
		{
			dbus.WithMatchInterface(busIface),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg(0, busName),
		},
	}
	for i, rule := range rules {
		if err := b.conn.AddMatchSignal(rule...); err != nil {
			b.removeRules(rules[:i])
			return nil, fmt.Errorf("failed to add match signal: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, 16)
	b.conn.Signal(signals)

	out := make(chan struct{}, 1)
	go b.watch(ctx, busName, owner, signals, out, rules)

	b.logger.Debug().
		Str("player", busName).
		Str("owner", owner).
		Msg("Subscribed to player signals")
	return out, nil
}

// watch forwards relevant signals as notifications until the player's name
// loses its owner or ctx is done.
func (b *MprisBus) watch(ctx context.Context, busName, owner string, signals chan *dbus.Signal, out chan<- struct{}, rules [][]dbus.MatchOption) {
	defer func() {
		b.conn.RemoveSignal(signals)
		b.removeRules(rules)
		close(out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if sig == nil {
				continue
			}
			switch sig.Name {
			case sigNameOwnerChanged:
				newOwner, matched := ownerChange(sig, busName)
				if !matched {
					continue
				}
				if newOwner == "" {
					return
				}
				owner = newOwner
				notify(out)
			case sigPropertiesChanged:
				if sig.Sender == owner && playerPropertiesChanged(sig) {
					notify(out)
				}
			case sigSeeked:
				if sig.Sender == owner {
					notify(out)
				}
			}
		}
	}
}

func (b *MprisBus) removeRules(rules [][]dbus.MatchOption) {
	for _, rule := range rules {
		if err := b.conn.RemoveMatchSignal(rule...); err != nil {
			b.logger.Debug().Err(err).Msg("Failed to remove match signal")
		}
	}
}

// notify delivers a notification without blocking. A pending notification
// already covers this one because the consumer re-queries the full state.
func notify(out chan<- struct{}) {
	select {
	case out <- struct{}{}:
	default:
	}
}

// ownerChange extracts the new owner from a NameOwnerChanged signal for busName.
func ownerChange(sig *dbus.Signal, busName string) (string, bool) {
	if len(sig.Body) < 3 {
		return "", false
	}
	name, ok := sig.Body[0].(string)
	if !ok || name != busName {
		return "", false
	}
	newOwner, _ := sig.Body[2].(string)
	return newOwner, true
}

// playerPropertiesChanged reports whether a PropertiesChanged signal concerns
// the player interface.
func playerPropertiesChanged(sig *dbus.Signal) bool {
	if len(sig.Body) < 2 {
		return false
	}
	iface, ok := sig.Body[0].(string)
	return ok && iface == playerIface
}

// parseMetadata converts MPRIS metadata into a Track. Missing or malformed
// fields are left empty. Returns nil when the player reports no item.
func parseMetadata(metadata map[string]dbus.Variant) *Track {
	if len(metadata) == 0 {
		return nil
	}

	var t Track
	if v, ok := metadata["xesam:title"]; ok {
		t.Title, _ = v.Value().(string)
	}
	if v, ok := metadata["xesam:artist"]; ok {
		switch artists := v.Value().(type) {
		case []string:
			t.Artist = strings.Join(artists, ", ")
		case string:
			t.Artist = artists
		}
	}
	if v, ok := metadata["xesam:album"]; ok {
		t.Album, _ = v.Value().(string)
	}
	if v, ok := metadata["mpris:length"]; ok {
		t.Length, _ = microseconds(v)
	}
	if v, ok := metadata["mpris:artUrl"]; ok {
		if artURL, ok := v.Value().(string); ok {
			t.Art = ParseArtURL(artURL)
		}
	}

	if t.Title == "" && t.Artist == "" && t.Album == "" && t.Art.Kind == ArtNone {
		return nil
	}
	return &t
}

// microseconds decodes an MPRIS time value. Players disagree on the integer
// type, so all of them are accepted.
func microseconds(v dbus.Variant) (time.Duration, bool) {
	var us int64
	switch n := v.Value().(type) {
	case int64:
		us = n
	case uint64:
		us = int64(n)
	case int32:
		us = int64(n)
	case uint32:
		us = int64(n)
	case float64:
		us = int64(n)
	default:
		return 0, false
	}
	if us < 0 {
		return 0, false
	}
	return time.Duration(us) * time.Microsecond, true
}

func clampPosition(pos time.Duration, t *Track) time.Duration {
	if pos < 0 {
		return 0
	}
	if t != nil && t.Length > 0 && pos > t.Length {
		return t.Length
	}
	return pos
}
