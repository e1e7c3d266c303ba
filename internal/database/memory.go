package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wingo/internal/game"
)

// MemoryRepository is a process-local game.Repository. It enforces the
// same uniqueness and conditional-update rules as the Postgres schema.
type MemoryRepository struct {
	mu     sync.RWMutex
	rounds map[string]*game.Round
	bets   map[string]*game.Bet
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rounds: make(map[string]*game.Round),
		bets:   make(map[string]*game.Bet),
		now:    time.Now,
	}
}

func (r *MemoryRepository) FindLatestRound(_ context.Context, track string) (*game.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *game.Round
	for _, round := range r.rounds {
		if round.Track != track {
			continue
		}
		if latest == nil || round.StartTime.After(latest.StartTime) {
			latest = round
		}
	}
	return copyRound(latest), nil
}

func (r *MemoryRepository) FindRound(_ context.Context, track, period string) (*game.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, round := range r.rounds {
		if round.Track == track && round.Period == period {
			return copyRound(round), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) CreateRound(_ context.Context, track, period string, start, end time.Time) (*game.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, round := range r.rounds {
		if round.Track != track {
			continue
		}
		if round.Period == period || round.Status != game.StatusSettled {
			return nil, game.ErrDuplicateRound
		}
	}

	now := r.now()
	round := &game.Round{
		ID:        uuid.NewString(),
		Track:     track,
		Period:    period,
		StartTime: start,
		EndTime:   end,
		Status:    game.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.rounds[round.ID] = round
	return copyRound(round), nil
}

func (r *MemoryRepository) UpdateRoundStatus(_ context.Context, id string, expected, next game.RoundStatus, result *game.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	round, ok := r.rounds[id]
	if !ok {
		return game.ErrRoundNotFound
	}
	if round.Status != expected || !expected.CanAdvanceTo(next) {
		return game.ErrStatusConflict
	}

	round.Status = next
	if result != nil {
		res := *result
		round.Result = &res
	}
	round.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) FindSettledHistory(_ context.Context, track string, limit int) ([]game.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var settled []game.Round
	for _, round := range r.rounds {
		if round.Track == track && round.Status == game.StatusSettled {
			settled = append(settled, *copyRound(round))
		}
	}
	sort.Slice(settled, func(i, j int) bool {
		return settled[i].StartTime.After(settled[j].StartTime)
	})
	if limit > 0 && len(settled) > limit {
		settled = settled[:limit]
	}
	return settled, nil
}

func (r *MemoryRepository) CreateBet(_ context.Context, bet game.Bet) (*game.Bet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rounds[bet.RoundID]; !ok {
		return nil, game.ErrRoundNotFound
	}
	if bet.ID == "" {
		bet.ID = uuid.NewString()
	}
	if bet.CreatedAt.IsZero() {
		bet.CreatedAt = r.now()
	}
	stored := bet
	r.bets[bet.ID] = &stored
	return &bet, nil
}

func (r *MemoryRepository) FindBets(_ context.Context, track string, limit int) ([]game.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bets []game.Bet
	for _, bet := range r.bets {
		if track == "" || bet.Track == track {
			bets = append(bets, *bet)
		}
	}
	sortBets(bets)
	if limit > 0 && len(bets) > limit {
		bets = bets[:limit]
	}
	return bets, nil
}

func (r *MemoryRepository) FindPendingBets(_ context.Context, roundID string) ([]game.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bets []game.Bet
	for _, bet := range r.bets {
		if bet.RoundID == roundID && bet.Outcome == game.OutcomePending {
			bets = append(bets, *bet)
		}
	}
	sortBets(bets)
	return bets, nil
}

func (r *MemoryRepository) GradeBet(_ context.Context, betID string, outcome game.BetOutcome, payout decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bet, ok := r.bets[betID]
	if !ok || bet.Outcome != game.OutcomePending {
		return game.ErrStatusConflict
	}
	bet.Outcome = outcome
	bet.Payout = payout
	return nil
}

func sortBets(bets []game.Bet) {
	sort.Slice(bets, func(i, j int) bool {
		if bets[i].CreatedAt.Equal(bets[j].CreatedAt) {
			return bets[i].ID > bets[j].ID
		}
		return bets[i].CreatedAt.After(bets[j].CreatedAt)
	})
}

func copyRound(round *game.Round) *game.Round {
	if round == nil {
		return nil
	}
	c := *round
	if round.Result != nil {
		res := *round.Result
		c.Result = &res
	}
	return &c
}
