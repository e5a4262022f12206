package daemon

import (
	"time"

	"github.com/jfmyers9/tunecord/internal/player"
)

// Update is a player change worth reflecting in the presence
type Update struct {
	Available bool         // False while the player is absent
	State     player.State // Valid when Available
}

// Tracker decides which player events are material. Position drift from
// normal playback is not; a seek beyond the tolerance is.
type Tracker struct {
	tolerance time.Duration
	last      *Update // Last propagated update, nil before the first
}

// NewTracker creates a tracker treating position jumps up to tolerance as
// ordinary drift.
func NewTracker(tolerance time.Duration) *Tracker {
	return &Tracker{tolerance: tolerance}
}

// Apply folds an event into the tracked state and reports whether it should
// be propagated.
func (t *Tracker) Apply(ev player.Event) (Update, bool) {
	cur := Update{Available: ev.Kind == player.EventUpdated}
	if cur.Available {
		cur.State = ev.State
	}

	if t.last != nil && !t.changed(*t.last, cur) {
		return Update{}, false
	}
	t.last = &cur
	return cur, true
}

func (t *Tracker) changed(prev, cur Update) bool {
	if prev.Available != cur.Available {
		return true
	}
	if !cur.Available {
		return false
	}

	p, c := prev.State, cur.State
	if p.Status != c.Status {
		return true
	}
	if !sameTrack(p.Track, c.Track) {
		return true
	}
	if p.PositionKnown != c.PositionKnown {
		return true
	}
	return c.Status == player.StatusPlaying && t.seeked(p, c)
}

// seeked reports whether cur's position is off from where continuous
// playback since prev would put it. Unknown positions never seek.
func (t *Tracker) seeked(prev, cur player.State) bool {
	if !prev.PositionKnown || !cur.PositionKnown {
		return false
	}
	expected := prev.Position + cur.At.Sub(prev.At)
	drift := cur.Position - expected
	if drift < 0 {
		drift = -drift
	}
	return drift > t.tolerance
}

func sameTrack(a, b *player.Track) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.SameIdentity(*b) && a.Art == b.Art && a.Length == b.Length
}
