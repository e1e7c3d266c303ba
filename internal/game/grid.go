package game

import "time"

// Slot is the aligned interval [Start, End) a round occupies.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Align returns the epoch-aligned slot of length d that encloses now.
// Every caller inside the same slot gets the same boundaries, which is what
// lets restarts agree on round boundaries without shared state.
func Align(d time.Duration, now time.Time) Slot {
	step := int64(d)
	n := now.UnixNano()
	start := n - n%step
	if n < 0 && n%step != 0 {
		start -= step
	}

	if start+step <= n {
		start += step
	}

	s := time.Unix(0, start).In(now.Location())
	return Slot{Start: s, End: s.Add(d)}
}
