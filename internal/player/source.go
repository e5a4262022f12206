package player

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Source follows one named player on the bus and turns its notifications
// into Events. Player absence is reported as EventUnavailable and retried at
// a fixed interval; it never ends the stream.
type Source struct {
	bus      Bus
	name     string
	interval time.Duration
	logger   zerolog.Logger
}

// NewSource creates a Source for the named player
func NewSource(bus Bus, name string, interval time.Duration, logger zerolog.Logger) *Source {
	return &Source{
		bus:      bus,
		name:     name,
		interval: interval,
		logger:   logger.With().Str("component", "player").Str("player", name).Logger(),
	}
}

// Run emits events until ctx is cancelled
func (s *Source) Run(ctx context.Context, events chan<- Event) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting player source")

	for {
		if err := s.follow(ctx, events); err != nil {
			s.logger.Debug().Err(err).Msg("Player not reachable")
		}
		if !s.emit(ctx, events, Unavailable()) {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Player source stopped")
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
}

// follow subscribes to the player and emits a fresh snapshot for every
// notification. It returns when the player disappears.
func (s *Source) follow(ctx context.Context, events chan<- Event) error {
	// Subscribe before the first query so no change falls in between.
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notes, err := s.bus.Subscribe(subCtx, s.name)
	if err != nil {
		return err
	}

	if ok, err := s.snapshot(ctx, events); !ok {
		return err
	}
	s.logger.Info().Msg("Player found")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, open := <-notes:
			if !open {
				s.logger.Info().Msg("Player went away")
				return nil
			}
			if ok, err := s.snapshot(ctx, events); !ok {
				return err
			}
		}
	}
}

// snapshot queries the player and emits its state. It returns false when the
// player is gone or the query failed.
func (s *Source) snapshot(ctx context.Context, events chan<- Event) (bool, error) {
	st, err := s.bus.Query(ctx, s.name)
	if err != nil {
		return false, err
	}
	if st == nil {
		return false, nil
	}
	if !s.emit(ctx, events, Updated(*st)) {
		return false, ctx.Err()
	}
	if st.Track != nil {
		s.logger.Debug().
			Str("title", st.Track.Title).
			Str("artist", st.Track.Artist).
			Str("status", st.Status.String()).
			Dur("position", st.Position).
			Msg("Player update")
	}
	return true, nil
}

func (s *Source) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
