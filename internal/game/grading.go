package game

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"

	"wingo/internal/lib/logger/sl"
)

// Grader decides the outcome and payout of a bet against a settled result.
// No payout table ships with the service; operators plug one in with
// WithGrader.
type Grader interface {
	Grade(result Result, bet Bet) (BetOutcome, decimal.Decimal, error)
}

// GraderFunc adapts a function to Grader.
type GraderFunc func(result Result, bet Bet) (BetOutcome, decimal.Decimal, error)

func (f GraderFunc) Grade(result Result, bet Bet) (BetOutcome, decimal.Decimal, error) {
	return f(result, bet)
}

func (m *Manager) grade(ctx context.Context, round Round) {
	if m.grader == nil || round.Result == nil {
		return
	}

	log := m.log.With(slog.String("round_id", round.ID))

	bets, err := m.repo.FindPendingBets(ctx, round.ID)
	if err != nil {
		log.Error("load pending bets", sl.Err(err))
		return
	}

	for _, bet := range bets {
		outcome, payout, err := m.grader.Grade(*round.Result, bet)
		if err != nil {
			log.Error("grade bet", slog.String("bet_id", bet.ID), sl.Err(err))
			continue
		}
		if err := m.repo.GradeBet(ctx, bet.ID, outcome, payout.Round(PayoutPlaces)); err != nil {
			log.Error("store bet grade", slog.String("bet_id", bet.ID), sl.Err(err))
		}
	}
}
