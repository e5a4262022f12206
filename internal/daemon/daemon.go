package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jfmyers9/tunecord/internal/artwork"
	"github.com/jfmyers9/tunecord/internal/discord"
	"github.com/jfmyers9/tunecord/internal/player"
)

const shutdownTimeout = 3 * time.Second

// Config holds daemon configuration
type Config struct {
	SeekTolerance time.Duration   // Position jumps beyond this count as seeks
	Art           artwork.Options // How local cover art is prepared
	Presence      discord.Options // Presence rendering options
}

// EventSource produces player events until ctx is done
type EventSource interface {
	Run(ctx context.Context, events chan<- player.Event) error
}

// Resolver turns art references into displayable URLs
type Resolver interface {
	Resolve(ctx context.Context, ref player.ArtRef, opts artwork.Options) (string, error)
}

// Presence is the outbound presence connection
type Presence interface {
	Send(discord.Activity)
	Clear()
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// artResult is a finished resolution for the update numbered gen
type artResult struct {
	gen   uint64
	state player.State
	url   string
	err   error
}

// Daemon drives the pipeline from player events to presence updates
type Daemon struct {
	config   Config
	source   EventSource
	tracker  *Tracker
	resolver Resolver
	presence Presence
	logger   zerolog.Logger

	gen uint64 // Number of the latest propagated update
}

// New creates a new Daemon instance
func New(cfg Config, source EventSource, resolver Resolver, presence Presence, logger zerolog.Logger) *Daemon {
	return &Daemon{
		config:   cfg,
		source:   source,
		tracker:  NewTracker(cfg.SeekTolerance),
		resolver: resolver,
		presence: presence,
		logger:   logger.With().Str("component", "daemon").Logger(),
	}
}

// Run starts the daemon and blocks until a shutdown signal is received or
// the presence connection fails for good.
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		<-sigChan
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Second signal forces exit
		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return d.run(ctx)
}

// run is the main daemon loop
func (d *Daemon) run(ctx context.Context) error {
	d.logger.Info().Msg("Starting daemon")

	g, gctx := errgroup.WithContext(ctx)
	events := make(chan player.Event, 16)

	g.Go(func() error {
		return d.source.Run(gctx, events)
	})
	g.Go(func() error {
		return d.presence.Run(gctx)
	})
	g.Go(func() error {
		return d.handleEvents(gctx, events)
	})

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := d.presence.Shutdown(shutdownCtx); serr != nil {
		d.logger.Warn().Err(serr).Msg("Failed to clear presence on shutdown")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error().Err(err).Msg("Daemon stopped")
		return err
	}
	d.logger.Info().Msg("Daemon stopped")
	return nil
}

// handleEvents turns propagated updates into presence sends. Art resolution
// runs concurrently; a result for anything but the latest update is dropped.
func (d *Daemon) handleEvents(ctx context.Context, events <-chan player.Event) error {
	results := make(chan artResult)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-events:
			upd, ok := d.tracker.Apply(ev)
			if !ok {
				continue
			}
			d.gen++

			if !upd.Available || upd.State.Track == nil {
				d.logger.Info().Bool("available", upd.Available).Msg("Nothing playing, clearing presence")
				d.presence.Clear()
				continue
			}

			track := upd.State.Track
			d.logger.Info().
				Str("track", track.Title).
				Str("artist", track.Artist).
				Str("status", upd.State.Status.String()).
				Msg("Player update")
			go d.resolve(ctx, d.gen, upd.State, results)

		case res := <-results:
			if res.gen != d.gen {
				d.logger.Debug().
					Uint64("gen", res.gen).
					Uint64("latest", d.gen).
					Msg("Discarding superseded update")
				continue
			}
			url := res.url
			if res.err != nil {
				d.logger.Warn().Err(res.err).Msg("Cover art unavailable, sending without image")
				url = ""
			}
			d.presence.Send(discord.Build(res.state, url, d.config.Presence))
		}
	}
}

func (d *Daemon) resolve(ctx context.Context, gen uint64, st player.State, results chan<- artResult) {
	url, err := d.resolver.Resolve(ctx, st.Track.Art, d.config.Art)
	if err != nil {
		err = fmt.Errorf("resolve cover art: %w", err)
	}
	select {
	case results <- artResult{gen: gen, state: st, url: url, err: err}:
	case <-ctx.Done():
	}
}
