package game

import (
	"testing"
	"time"
)

func TestEncodePeriod(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	tests := []struct {
		name  string
		track Track
		start time.Time
		want  string
	}{
		{
			name:  "first slot of the day",
			track: Track{ID: "30s", Duration: 30 * time.Second},
			start: time.Date(2026, 10, 18, 0, 0, 0, 0, loc),
			want:  "20261018300001",
		},
		{
			name:  "10:00:00 on 30s",
			track: Track{ID: "30s", Duration: 30 * time.Second},
			start: time.Date(2026, 10, 18, 10, 0, 0, 0, loc),
			want:  "20261018301201",
		},
		{
			name:  "last slot of the day on 30s",
			track: Track{ID: "30s", Duration: 30 * time.Second},
			start: time.Date(2026, 10, 18, 23, 59, 30, 0, loc),
			want:  "20261018302880",
		},
		{
			name:  "5 minute track",
			track: Track{ID: "300s", Duration: 300 * time.Second},
			start: time.Date(2026, 1, 2, 12, 5, 0, 0, loc),
			want:  "202601023000146",
		},
		{
			name:  "start given in another zone uses the reference zone",
			track: Track{ID: "60s", Duration: 60 * time.Second},
			start: time.Date(2026, 10, 17, 18, 31, 0, 0, time.UTC),
			want:  "20261018600002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodePeriod(tt.track, tt.start, loc); got != tt.want {
				t.Errorf("EncodePeriod() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodePeriod_StrictlyIncreasingWithinDay(t *testing.T) {
	loc := time.UTC
	for _, track := range DefaultTracks {
		t.Run(track.ID, func(t *testing.T) {
			day := time.Date(2026, 10, 18, 0, 0, 0, 0, loc)
			seen := make(map[string]bool)
			prev := ""

			for s := day; s.Before(day.Add(24 * time.Hour)); s = s.Add(track.Duration) {
				p := EncodePeriod(track, s, loc)
				if seen[p] {
					t.Fatalf("period %s repeated at %s", p, s)
				}
				if prev != "" && p <= prev {
					t.Fatalf("period %s not after %s", p, prev)
				}
				seen[p] = true
				prev = p
			}

			if len(seen) != 86400/track.Seconds() {
				t.Errorf("got %d periods, want %d", len(seen), 86400/track.Seconds())
			}
		})
	}
}

func TestEncodePeriod_SameSlotSameID(t *testing.T) {
	track := Track{ID: "30s", Duration: 30 * time.Second}
	start := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	a := EncodePeriod(track, Align(track.Duration, start.Add(7*time.Second)).Start, time.UTC)
	b := EncodePeriod(track, Align(track.Duration, start.Add(29*time.Second)).Start, time.UTC)
	c := EncodePeriod(track, Align(track.Duration, start.Add(30*time.Second)).Start, time.UTC)

	if a != b {
		t.Errorf("same slot encoded differently: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("adjacent slots share period %s", a)
	}
}

func TestValidateTrack(t *testing.T) {
	tests := []struct {
		name    string
		track   Track
		wantErr bool
	}{
		{"30s", Track{ID: "30s", Duration: 30 * time.Second}, false},
		{"one hour", Track{ID: "1h", Duration: time.Hour}, false},
		{"empty id", Track{Duration: 30 * time.Second}, true},
		{"zero", Track{ID: "zero"}, true},
		{"negative", Track{ID: "neg", Duration: -30 * time.Second}, true},
		{"fractional seconds", Track{ID: "frac", Duration: 1500 * time.Millisecond}, true},
		{"does not divide a day", Track{ID: "7s", Duration: 7 * time.Second}, true},
		{"too many periods", Track{ID: "1s", Duration: time.Second}, true},
		{"8s overflows 4 digits", Track{ID: "8s", Duration: 8 * time.Second}, true},
		{"9s fits", Track{ID: "9s", Duration: 9 * time.Second}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTrack(tt.track)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTrack() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTracks_Validate(t *testing.T) {
	if err := Tracks(DefaultTracks).Validate(); err != nil {
		t.Errorf("default tracks invalid: %v", err)
	}

	dup := Tracks{
		{ID: "30s", Duration: 30 * time.Second},
		{ID: "30s", Duration: 60 * time.Second},
	}
	if err := dup.Validate(); err == nil {
		t.Error("duplicate track ids should be rejected")
	}

	if err := (Tracks{}).Validate(); err == nil {
		t.Error("empty track set should be rejected")
	}
}
