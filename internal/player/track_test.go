package player

import (
	"testing"
	"time"
)

func TestParseArtURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ArtRef
	}{
		{name: "empty", raw: "", want: ArtRef{}},
		{name: "whitespace", raw: "   ", want: ArtRef{}},
		{
			name: "file uri",
			raw:  "file:///home/me/Music/cover.jpg",
			want: ArtRef{Kind: ArtLocal, Location: "/home/me/Music/cover.jpg"},
		},
		{
			name: "file uri with escapes",
			raw:  "file:///home/me/My%20Music/cover.png",
			want: ArtRef{Kind: ArtLocal, Location: "/home/me/My Music/cover.png"},
		},
		{
			name: "bare absolute path",
			raw:  "/tmp/kew/cover.jpg",
			want: ArtRef{Kind: ArtLocal, Location: "/tmp/kew/cover.jpg"},
		},
		{
			name: "https url",
			raw:  "https://i.scdn.co/image/abc",
			want: ArtRef{Kind: ArtRemote, Location: "https://i.scdn.co/image/abc"},
		},
		{
			name: "http url",
			raw:  "http://example.com/a.jpg",
			want: ArtRef{Kind: ArtRemote, Location: "http://example.com/a.jpg"},
		},
		{name: "data uri", raw: "data:image/png;base64,AAAA", want: ArtRef{}},
		{name: "relative path", raw: "cover.jpg", want: ArtRef{}},
		{name: "file uri without path", raw: "file://", want: ArtRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseArtURL(tt.raw); got != tt.want {
				t.Errorf("ParseArtURL(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"Playing": StatusPlaying,
		"Paused":  StatusPaused,
		"Stopped": StatusStopped,
		"":        StatusStopped,
		"bogus":   StatusStopped,
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Errorf("ParseStatus(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAnchors_Playing(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := State{
		Status:        StatusPlaying,
		Track:         &Track{Title: "Song", Length: 210 * time.Second},
		Position:      30 * time.Second,
		PositionKnown: true,
		At:            now,
	}

	timing := st.Anchors()
	if want := now.Add(-30 * time.Second); !timing.Start.Equal(want) {
		t.Errorf("start = %v, want %v", timing.Start, want)
	}
	if want := now.Add(180 * time.Second); !timing.End.Equal(want) {
		t.Errorf("end = %v, want %v", timing.End, want)
	}
}

func TestAnchors_PausedHasNoEnd(t *testing.T) {
	now := time.Now()
	st := State{
		Status:        StatusPaused,
		Track:         &Track{Title: "Song", Length: 210 * time.Second},
		Position:      30 * time.Second,
		PositionKnown: true,
		At:            now,
	}

	timing := st.Anchors()
	if timing.HasEnd() {
		t.Errorf("paused state should have no end anchor, got %v", timing.End)
	}
	if !timing.Start.Equal(now.Add(-30 * time.Second)) {
		t.Errorf("start = %v, want now-30s", timing.Start)
	}
}

func TestAnchors_UnknownLength(t *testing.T) {
	st := State{Status: StatusPlaying, Track: &Track{Title: "Stream"}, PositionKnown: true, At: time.Now()}
	if st.Anchors().HasEnd() {
		t.Error("expected no end anchor when length is unknown")
	}
}

func TestAnchors_UnknownPosition(t *testing.T) {
	st := State{
		Status: StatusPlaying,
		Track:  &Track{Title: "Song", Length: 210 * time.Second},
		At:     time.Now(),
	}
	if timing := st.Anchors(); timing.HasStart() || timing.HasEnd() {
		t.Errorf("expected no anchors without a position, got %+v", timing)
	}
}

func TestAnchors_NoTrack(t *testing.T) {
	if got := (State{Status: StatusPlaying, At: time.Now()}).Anchors(); got != (Timing{}) {
		t.Errorf("expected zero timing without a track, got %+v", got)
	}
}

func TestSameIdentity(t *testing.T) {
	a := Track{Title: "A", Artist: "X", Album: "Y", Length: time.Minute}
	b := a
	b.Length = 2 * time.Minute
	b.Art = ArtRef{Kind: ArtRemote, Location: "https://example.com/a.jpg"}
	if !a.SameIdentity(b) {
		t.Error("length and art should not affect identity")
	}
	b.Album = "Z"
	if a.SameIdentity(b) {
		t.Error("different album should change identity")
	}
}
