package game

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"

	"wingo/internal/lib/logger/sl"
)

// DefaultMinBet is the smallest accepted wager amount.
var DefaultMinBet = decimal.NewFromInt(10)

// Stakes are stored as NUMERIC(18, 2) and totals and payouts as
// NUMERIC(20, 4). Requests that the store would round or overflow are
// refused up front.
const (
	StakePlaces  = 2
	PayoutPlaces = 4
)

// MaxStake bounds both the amount and the total of a single bet.
var MaxStake = decimal.New(1, 12)

// Intake validates and records wagers against the open round of a track.
type Intake struct {
	manager   *Manager
	repo      Repository
	minBet    decimal.Decimal
	validator *validator.Validate
	publisher Publisher
	log       *slog.Logger
}

func NewIntake(manager *Manager, repo Repository, minBet decimal.Decimal, publisher Publisher, log *slog.Logger) *Intake {
	if log == nil {
		log = sl.Discard()
	}
	if !minBet.IsPositive() {
		minBet = DefaultMinBet
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Intake{
		manager:   manager,
		repo:      repo,
		minBet:    minBet,
		validator: v,
		publisher: publisher,
		log:       log.With(slog.String("component", "intake")),
	}
}

func (in *Intake) MinBet() decimal.Decimal { return in.minBet }

// PlaceBet records req against the open round of its track. The bet is
// refused with a conflict error once the round is within the lock
// threshold of its end, using the same threshold as the Manager.
func (in *Intake) PlaceBet(ctx context.Context, req BetRequest) (*Bet, error) {
	const op = "game.Intake.PlaceBet"

	if err := in.validator.Struct(req); err != nil {
		return nil, validationError(op, describeValidation(err))
	}

	t, err := in.manager.Track(req.Track)
	if err != nil {
		return nil, err
	}

	sel, err := ParseSelection(req.BetType, req.BetValue)
	if err != nil {
		return nil, validationError(op, err.Error())
	}

	if req.Amount.LessThan(in.minBet) {
		return nil, validationError(op, fmt.Sprintf("amount must be at least %s", in.minBet.String()))
	}
	if err := checkStake("amount", req.Amount); err != nil {
		return nil, validationError(op, err.Error())
	}

	multiplier := decimal.NewFromInt(1)
	if req.Multiplier != nil {
		multiplier = *req.Multiplier
	}
	if !multiplier.IsPositive() {
		return nil, validationError(op, "multiplier must be positive")
	}
	if err := checkStake("multiplier", multiplier); err != nil {
		return nil, validationError(op, err.Error())
	}

	total := req.Amount.Mul(multiplier)
	if total.GreaterThan(MaxStake) {
		return nil, validationError(op, fmt.Sprintf("total amount must not exceed %s", MaxStake.String()))
	}

	round, left, err := in.manager.OpenRound(ctx, t)
	if err != nil {
		return nil, err
	}
	if left <= in.manager.LockThreshold() {
		return nil, conflictError(op, fmt.Sprintf("betting closed for period %s", round.Period))
	}

	bet := Bet{
		ID:          uuid.NewString(),
		RoundID:     round.ID,
		Track:       t.ID,
		Period:      round.Period,
		Selection:   sel,
		Amount:      req.Amount,
		Multiplier:  multiplier,
		TotalAmount: total,
		Outcome:     OutcomePending,
		Payout:      decimal.Zero,
		CreatedAt:   in.manager.Now(),
	}

	saved, err := in.repo.CreateBet(ctx, bet)
	if err != nil {
		return nil, repositoryError(op, err)
	}

	in.log.Info("bet placed",
		slog.String("bet_id", saved.ID),
		slog.String("track", saved.Track),
		slog.String("period", saved.Period),
		slog.String("total", saved.TotalAmount.String()),
	)

	if in.publisher != nil {
		view := saved.View()
		if err := in.publisher.Publish(ctx, Event{Type: EventBetPlaced, Track: saved.Track, Bet: &view, At: saved.CreatedAt}); err != nil {
			in.log.Warn("event not delivered", slog.String("event", string(EventBetPlaced)), sl.Err(err))
		}
	}

	return saved, nil
}

// ListBets returns recent bets, optionally limited to one track.
func (in *Intake) ListBets(ctx context.Context, track string, limit int) ([]Bet, error) {
	const op = "game.Intake.ListBets"

	if track != "" {
		if _, err := in.manager.Track(track); err != nil {
			return nil, err
		}
	}

	bets, err := in.repo.FindBets(ctx, track, limit)
	if err != nil {
		return nil, repositoryError(op, err)
	}
	return bets, nil
}

func checkStake(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(StakePlaces)) {
		return fmt.Errorf("%s must have at most %d decimal places", field, StakePlaces)
	}
	if d.GreaterThan(MaxStake) {
		return fmt.Errorf("%s must not exceed %s", field, MaxStake.String())
	}
	return nil
}

func describeValidation(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	var msgs []string
	for _, fe := range errs {
		switch fe.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}
