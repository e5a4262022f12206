package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeBus serves scripted states. Each Subscribe hands out a fresh
// notification channel that the test drives through notify and vanish.
type fakeBus struct {
	mu       sync.Mutex
	state    *State
	queryErr error
	subErr   error
	subs     chan chan struct{}
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(chan chan struct{}, 4)}
}

func (f *fakeBus) Subscribe(ctx context.Context, name string) (<-chan struct{}, error) {
	f.mu.Lock()
	err := f.subErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	ch := make(chan struct{}, 1)
	select {
	case f.subs <- ch:
	default:
	}
	return ch, nil
}

func (f *fakeBus) Query(ctx context.Context, name string) (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.state == nil {
		return nil, nil
	}
	st := *f.state
	return &st, nil
}

func (f *fakeBus) set(st *State) {
	f.mu.Lock()
	f.state = st
	f.mu.Unlock()
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
		return Event{}
	}
}

func TestSource_EmitsUpdatesAndUnavailable(t *testing.T) {
	bus := newFakeBus()
	bus.set(&State{Status: StatusPlaying, Track: &Track{Title: "One"}})

	src := NewSource(bus, "kew", 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, events) }()

	ev := nextEvent(t, events)
	if ev.Kind != EventUpdated || ev.State.Track.Title != "One" {
		t.Fatalf("first event = %+v, want update for One", ev)
	}

	sub := <-bus.subs
	bus.set(&State{Status: StatusPaused, Track: &Track{Title: "One"}})
	sub <- struct{}{}
	ev = nextEvent(t, events)
	if ev.Kind != EventUpdated || ev.State.Status != StatusPaused {
		t.Fatalf("second event = %+v, want paused update", ev)
	}

	// Player exits: subscription closes and the source reports absence.
	bus.set(nil)
	close(sub)
	ev = nextEvent(t, events)
	if ev.Kind != EventUnavailable {
		t.Fatalf("expected unavailable after player exit, got %+v", ev)
	}

	// While absent, the source keeps polling and reporting absence.
	ev = nextEvent(t, events)
	if ev.Kind != EventUnavailable {
		t.Fatalf("expected repeated unavailable while absent, got %+v", ev)
	}

	// Player comes back.
	bus.set(&State{Status: StatusPlaying, Track: &Track{Title: "Two"}})
	for {
		ev = nextEvent(t, events)
		if ev.Kind == EventUpdated {
			break
		}
	}
	if ev.State.Track.Title != "Two" {
		t.Fatalf("expected update for Two after resubscription, got %+v", ev)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}

func TestSource_SubscribeErrorIsUnavailable(t *testing.T) {
	bus := newFakeBus()
	bus.subErr = errors.New("name has no owner")

	src := NewSource(bus, "kew", 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event)
	go func() { _ = src.Run(ctx, events) }()

	for i := 0; i < 2; i++ {
		if ev := nextEvent(t, events); ev.Kind != EventUnavailable {
			t.Fatalf("event %d = %+v, want unavailable", i, ev)
		}
	}
}

func TestSource_QueryErrorIsUnavailable(t *testing.T) {
	bus := newFakeBus()
	bus.queryErr = errors.New("timeout")

	src := NewSource(bus, "kew", 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event)
	go func() { _ = src.Run(ctx, events) }()

	if ev := nextEvent(t, events); ev.Kind != EventUnavailable {
		t.Fatalf("event = %+v, want unavailable", ev)
	}
}
