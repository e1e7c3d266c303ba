package game

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository is the durable store of rounds and bets.
//
// Implementations must enforce uniqueness of (track, period) and of the
// active round per track, and must apply UpdateRoundStatus as a single
// conditional write. Multi-instance safety relies on these guarantees.
type Repository interface {
	// FindLatestRound returns the round with the latest start time for
	// track, or nil when the track has no rounds.
	FindLatestRound(ctx context.Context, track string) (*Round, error)
	// FindRound returns nil when no round exists for (track, period).
	FindRound(ctx context.Context, track, period string) (*Round, error)
	// CreateRound inserts an open round. It returns ErrDuplicateRound if the
	// round already exists.
	CreateRound(ctx context.Context, track, period string, start, end time.Time) (*Round, error)
	// UpdateRoundStatus moves round id from expected to next, writing result
	// when given. It returns ErrStatusConflict if the round was not in
	// expected status.
	UpdateRoundStatus(ctx context.Context, id string, expected, next RoundStatus, result *Result) error
	// FindSettledHistory returns up to limit settled rounds, most recent first.
	FindSettledHistory(ctx context.Context, track string, limit int) ([]Round, error)

	CreateBet(ctx context.Context, bet Bet) (*Bet, error)
	// FindBets returns up to limit bets, most recent first. An empty track
	// matches every track.
	FindBets(ctx context.Context, track string, limit int) ([]Bet, error)
	FindPendingBets(ctx context.Context, roundID string) ([]Bet, error)
	GradeBet(ctx context.Context, betID string, outcome BetOutcome, payout decimal.Decimal) error
}
