package game

import (
	"fmt"
	"time"
)

const (
	secondsPerDay = 86400
	// maxPeriodNumber bounds the 4-digit period counter.
	maxPeriodNumber = 9999
)

// Track is one independently scheduled round cadence.
type Track struct {
	ID       string        `json:"id"`
	Duration time.Duration `json:"-"`
}

func (t Track) Seconds() int { return int(t.Duration / time.Second) }

// DefaultTracks are the cadences served when none are configured.
var DefaultTracks = Tracks{
	{ID: "30s", Duration: 30 * time.Second},
	{ID: "60s", Duration: 60 * time.Second},
	{ID: "180s", Duration: 180 * time.Second},
	{ID: "300s", Duration: 300 * time.Second},
}

// ValidateTrack rejects durations that would make period identifiers
// unstable or ambiguous.
func ValidateTrack(t Track) error {
	if t.ID == "" {
		return fmt.Errorf("track id is empty")
	}
	if t.Duration <= 0 || t.Duration%time.Second != 0 {
		return fmt.Errorf("track %s: duration %s must be a positive whole number of seconds", t.ID, t.Duration)
	}
	secs := t.Seconds()
	if secondsPerDay%secs != 0 {
		return fmt.Errorf("track %s: duration %ds must divide %d", t.ID, secs, secondsPerDay)
	}
	if secondsPerDay/secs > maxPeriodNumber {
		return fmt.Errorf("track %s: %d periods per day do not fit in 4 digits", t.ID, secondsPerDay/secs)
	}
	return nil
}

// EncodePeriod returns the period identifier of the slot starting at start:
// YYYYMMDD, the track duration in seconds, and the 1-based slot number
// within the local day zero-padded to 4 digits. loc is the reference zone
// for the calendar day.
func EncodePeriod(t Track, start time.Time, loc *time.Location) string {
	local := start.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	elapsed := int(local.Sub(midnight) / time.Second)
	number := elapsed/t.Seconds() + 1

	return fmt.Sprintf("%04d%02d%02d%d%04d", y, int(m), d, t.Seconds(), number)
}

// Tracks is the configured set of tracks.
type Tracks []Track

func (ts Tracks) Lookup(id string) (Track, bool) {
	for _, t := range ts {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// Validate checks every track and rejects duplicate ids.
func (ts Tracks) Validate() error {
	if len(ts) == 0 {
		return fmt.Errorf("no tracks configured")
	}
	seen := make(map[string]bool, len(ts))
	for _, t := range ts {
		if err := ValidateTrack(t); err != nil {
			return err
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate track %s", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}
