package game

import (
	"time"

	"github.com/shopspring/decimal"
)

type RoundStatus string

const (
	StatusOpen    RoundStatus = "open"
	StatusLocked  RoundStatus = "locked"
	StatusSettled RoundStatus = "settled"
)

func (s RoundStatus) rank() int {
	switch s {
	case StatusOpen:
		return 1
	case StatusLocked:
		return 2
	case StatusSettled:
		return 3
	}
	return 0
}

func (s RoundStatus) Valid() bool { return s.rank() > 0 }

// CanAdvanceTo reports whether a round in status s may move to next.
// Status only moves forward; settled is terminal.
func (s RoundStatus) CanAdvanceTo(next RoundStatus) bool {
	return s.Valid() && next.Valid() && next.rank() > s.rank()
}

type Color string

const (
	ColorGreen       Color = "green"
	ColorRed         Color = "red"
	ColorViolet      Color = "violet"
	ColorRedViolet   Color = "red_violet"
	ColorGreenViolet Color = "green_violet"
)

type Size string

const (
	SizeBig   Size = "big"
	SizeSmall Size = "small"
)

// Result is the settled outcome of a round.
type Result struct {
	Number int   `json:"number"`
	Color  Color `json:"color"`
	Size   Size  `json:"size"`
}

type Round struct {
	ID        string      `json:"id"`
	Track     string      `json:"track"`
	Period    string      `json:"period"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Status    RoundStatus `json:"status"`
	Result    *Result     `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TimeLeft returns the time remaining until the round ends, measured at now.
// It is negative once the round is over.
func (r *Round) TimeLeft(now time.Time) time.Duration {
	return r.EndTime.Sub(now)
}

type BetOutcome string

const (
	OutcomePending BetOutcome = "pending"
	OutcomeWin     BetOutcome = "win"
	OutcomeLose    BetOutcome = "lose"
)

type Bet struct {
	ID          string          `json:"id"`
	RoundID     string          `json:"round_id"`
	Track       string          `json:"track"`
	Period      string          `json:"period"`
	Selection   Selection       `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Outcome     BetOutcome      `json:"result"`
	Payout      decimal.Decimal `json:"payout"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BetRequest is the wager as submitted by a client.
type BetRequest struct {
	Track      string           `json:"track" validate:"required"`
	BetType    string           `json:"bet_type" validate:"required,oneof=color number size"`
	BetValue   string           `json:"bet_value" validate:"required"`
	Amount     decimal.Decimal  `json:"amount"`
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
}

// BetView is the API rendering of a Bet.
type BetView struct {
	ID          string          `json:"id"`
	RoundID     string          `json:"round_id"`
	Track       string          `json:"track"`
	Period      string          `json:"period"`
	BetType     BetType         `json:"bet_type"`
	BetValue    string          `json:"bet_value"`
	Amount      decimal.Decimal `json:"amount"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Result      BetOutcome      `json:"result"`
	Payout      decimal.Decimal `json:"payout"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (b Bet) View() BetView {
	v := BetView{
		ID:          b.ID,
		RoundID:     b.RoundID,
		Track:       b.Track,
		Period:      b.Period,
		Amount:      b.Amount,
		Multiplier:  b.Multiplier,
		TotalAmount: b.TotalAmount,
		Result:      b.Outcome,
		Payout:      b.Payout,
		CreatedAt:   b.CreatedAt,
	}
	if b.Selection != nil {
		v.BetType = b.Selection.Type()
		v.BetValue = b.Selection.Value()
	}
	return v
}

// HistoryEntry is one settled outcome in a track's recent history.
type HistoryEntry struct {
	Period string `json:"period"`
	Number int    `json:"number"`
	Color  Color  `json:"color"`
	Size   Size   `json:"size"`
}

// Snapshot is the read model of a track exposed to the API layer.
type Snapshot struct {
	Track       string         `json:"track"`
	RoundID     string         `json:"round_id,omitempty"`
	Period      string         `json:"period,omitempty"`
	Status      RoundStatus    `json:"status,omitempty"`
	SecondsLeft int            `json:"seconds_left"`
	EndTime     *time.Time     `json:"end_time,omitempty"`
	History     []HistoryEntry `json:"history"`
}

// At returns s with SecondsLeft recomputed for now. Cached snapshots are
// served through it.
func (s Snapshot) At(now time.Time) Snapshot {
	if s.EndTime != nil {
		s.SecondsLeft = secondsLeft(s.EndTime.Sub(now))
	}
	return s
}

// FreshAt reports whether the status in s can still be current at now. An
// open round is due to lock lockThreshold before its end and a locked one
// is due to settle at its end, so a cached snapshot past that point must be
// rebuilt from the store.
func (s Snapshot) FreshAt(now time.Time, lockThreshold time.Duration) bool {
	if s.EndTime == nil {
		return true
	}
	switch s.Status {
	case StatusOpen:
		return now.Before(s.EndTime.Add(-lockThreshold))
	case StatusLocked:
		return now.Before(*s.EndTime)
	}
	return false
}
