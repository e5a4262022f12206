package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrConnectionFailed is returned by Run once the retry budget is spent.
var ErrConnectionFailed = errors.New("discord connection failed")

// ConnState is the IPC connection state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateReady
	StateRetrying
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateRetrying:
		return "retrying"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type rpcClient interface {
	SetActivity(*Activity) error
	Close() error
}

// command is a pending activity update; a nil activity clears.
type command struct {
	activity *Activity
}

// Client owns the Discord IPC connection. Send and Clear never block: the
// most recent request replaces any still waiting, and Run delivers it.
type Client struct {
	appID      string
	maxRetries int
	logger     zerolog.Logger
	connect    func(context.Context, string) (rpcClient, error)
	backoff    func(attempt int) time.Duration

	mu       sync.Mutex
	state    ConnState
	attempts int
	pending  *command
	wake     chan struct{}

	// Only touched by Run, and by Shutdown after Run returns.
	client rpcClient
}

// NewClient creates a client for the application. maxRetries is the number
// of consecutive failed attempts after which the client gives up.
func NewClient(appID string, maxRetries int, logger zerolog.Logger) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		appID:      appID,
		maxRetries: maxRetries,
		logger:     logger.With().Str("component", "discord").Logger(),
		connect: func(ctx context.Context, appID string) (rpcClient, error) {
			return ipcConnect(ctx, appID)
		},
		backoff: Backoff,
		wake:    make(chan struct{}, 1),
	}
}

// Backoff is the delay before reconnect attempt n+1: exponential from one
// second, capped at fifteen.
func Backoff(attempt int) time.Duration {
	const initial, max = time.Second, 15 * time.Second
	if attempt <= 0 {
		return 0
	}
	if attempt > 5 {
		return max
	}
	d := initial * (1 << (attempt - 1))
	if d > max {
		return max
	}
	return d
}

// State returns the connection state and the consecutive failure count.
func (c *Client) State() (ConnState, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.attempts
}

// Send queues a as the next activity, replacing any undelivered one.
func (c *Client) Send(a Activity) {
	c.submit(&command{activity: &a})
}

// Clear queues removal of the activity, replacing any undelivered update.
func (c *Client) Clear() {
	c.submit(&command{})
}

func (c *Client) submit(cmd *command) {
	c.mu.Lock()
	c.pending = cmd
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) take() *command {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd := c.pending
	c.pending = nil
	return cmd
}

// latest returns the newest pending command, or cmd if none arrived.
func (c *Client) latest(cmd *command) *command {
	if newer := c.take(); newer != nil {
		return newer
	}
	return cmd
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run delivers queued commands until ctx is done. It returns an error
// wrapping ErrConnectionFailed when the connection cannot be established
// within the retry budget.
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}

		for cmd := c.take(); cmd != nil; cmd = c.take() {
			if err := c.deliver(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

func (c *Client) deliver(ctx context.Context, cmd *command) error {
	for {
		if c.client == nil {
			if cmd.activity == nil {
				// Nothing is shown while disconnected; any retry in
				// progress is abandoned with a fresh budget.
				c.mu.Lock()
				c.state = StateDisconnected
				c.attempts = 0
				c.mu.Unlock()
				c.logger.Debug().Msg("Not connected, skipping clear")
				return nil
			}

			c.setState(StateConnecting)
			client, err := c.connect(ctx, c.appID)
			if err != nil {
				if ferr := c.fail(ctx, err); ferr != nil {
					return ferr
				}
				cmd = c.latest(cmd)
				continue
			}

			c.client = client
			c.mu.Lock()
			c.state = StateReady
			c.attempts = 0
			c.mu.Unlock()
			c.logger.Info().Msg("Connected to Discord")
			cmd = c.latest(cmd)
		}

		err := c.client.SetActivity(cmd.activity)
		if err == nil {
			if cmd.activity == nil {
				c.logger.Debug().Msg("Cleared activity")
			} else {
				c.logger.Debug().Str("details", cmd.activity.Details).Msg("Set activity")
			}
			return nil
		}

		var aerr *ActivityError
		if errors.As(err, &aerr) {
			c.logger.Warn().Err(err).Msg("Discord rejected activity")
			return nil
		}

		c.drop()
		if ferr := c.fail(ctx, err); ferr != nil {
			return ferr
		}
		cmd = c.latest(cmd)
	}
}

// fail records a transport failure and waits out the backoff, or returns
// the terminal error once the budget is spent.
func (c *Client) fail(ctx context.Context, err error) error {
	c.mu.Lock()
	c.attempts++
	n := c.attempts
	if n >= c.maxRetries {
		c.state = StateFailed
	} else {
		c.state = StateRetrying
	}
	c.mu.Unlock()

	if n >= c.maxRetries {
		c.logger.Error().Err(err).Int("attempts", n).Msg("Giving up on Discord")
		return fmt.Errorf("%w after %d attempts: %v", ErrConnectionFailed, n, err)
	}

	delay := c.backoff(n)
	c.logger.Warn().
		Err(err).
		Int("attempt", n).
		Int("max_attempts", c.maxRetries).
		Dur("backoff", delay).
		Msg("Discord not available")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) drop() {
	if c.client == nil {
		return
	}
	_ = c.client.Close()
	c.client = nil
	c.setState(StateDisconnected)
}

// Shutdown clears the activity and closes the connection. It must only be
// called after Run has returned.
func (c *Client) Shutdown(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- c.client.SetActivity(nil)
	}()

	var err error
	select {
	case err = <-done:
		if err != nil {
			err = fmt.Errorf("clear activity: %w", err)
		}
	case <-ctx.Done():
		err = ctx.Err()
	}

	if cerr := c.client.Close(); cerr != nil && err == nil {
		err = cerr
	}
	c.client = nil
	c.setState(StateDisconnected)
	return err
}
