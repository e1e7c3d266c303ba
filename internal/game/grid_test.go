package game

import (
	"testing"
	"time"
)

func TestAlign(t *testing.T) {
	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		duration  time.Duration
		now       time.Time
		wantStart time.Time
	}{
		{"exact boundary", 30 * time.Second, base, base},
		{"inside first half", 30 * time.Second, base.Add(7 * time.Second), base},
		{"just before boundary", 30 * time.Second, base.Add(29*time.Second + 999*time.Millisecond), base},
		{"second half of minute", 30 * time.Second, base.Add(31 * time.Second), base.Add(30 * time.Second)},
		{"3 minute track", 180 * time.Second, base.Add(4 * time.Minute), base.Add(3 * time.Minute)},
		{"5 minute track", 300 * time.Second, base.Add(299 * time.Second), base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := Align(tt.duration, tt.now)
			if !slot.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", slot.Start, tt.wantStart)
			}
			if !slot.End.Equal(tt.wantStart.Add(tt.duration)) {
				t.Errorf("End = %v, want %v", slot.End, tt.wantStart.Add(tt.duration))
			}
			if tt.now.Before(slot.Start) || !tt.now.Before(slot.End) {
				t.Errorf("now %v outside slot [%v, %v)", tt.now, slot.Start, slot.End)
			}
		})
	}
}

func TestAlign_IdempotentWithinSlot(t *testing.T) {
	for _, track := range DefaultTracks {
		t.Run(track.ID, func(t *testing.T) {
			start := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
			first := Align(track.Duration, start)

			for off := time.Duration(0); off < track.Duration; off += 250 * time.Millisecond {
				got := Align(track.Duration, start.Add(off))
				if !got.Start.Equal(first.Start) || !got.End.Equal(first.End) {
					t.Fatalf("Align at +%v = %v, want %v", off, got, first)
				}
			}

			next := Align(track.Duration, start.Add(track.Duration))
			if got := next.Start.Sub(first.Start); got != track.Duration {
				t.Errorf("adjacent slots differ by %v, want %v", got, track.Duration)
			}
		})
	}
}

func TestAlign_IndependentOfZone(t *testing.T) {
	now := time.Date(2026, 10, 18, 10, 0, 17, 0, time.UTC)
	ist := time.FixedZone("IST", 5*3600+1800)

	a := Align(30*time.Second, now)
	b := Align(30*time.Second, now.In(ist))

	if !a.Start.Equal(b.Start) {
		t.Errorf("zone changed slot start: %v vs %v", a.Start, b.Start)
	}
	if b.Start.Location() != ist {
		t.Errorf("slot should keep the caller's zone, got %v", b.Start.Location())
	}
}
