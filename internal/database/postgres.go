package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"wingo/internal/game"
)

const uniqueViolation = "23505"

const roundColumns = `id, track, period, start_time, end_time, status,
	result_number, result_color, result_size, created_at, updated_at`

const betColumns = `id, round_id, track, period, bet_type, bet_value,
	amount, multiplier, total_amount, result, payout, created_at`

// PostgresRepository implements game.Repository on top of the schema in
// migrations/. Uniqueness of rounds and conditional status updates are
// enforced by the database.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRound(row rowScanner) (*game.Round, error) {
	var (
		r      game.Round
		status string
		number sql.NullInt16
		color  sql.NullString
		size   sql.NullString
	)

	err := row.Scan(&r.ID, &r.Track, &r.Period, &r.StartTime, &r.EndTime, &status,
		&number, &color, &size, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.Status = game.RoundStatus(status)
	if number.Valid {
		r.Result = &game.Result{
			Number: int(number.Int16),
			Color:  game.Color(color.String),
			Size:   game.Size(size.String),
		}
	}
	return &r, nil
}

func (p *PostgresRepository) findOne(ctx context.Context, op, query string, args ...interface{}) (*game.Round, error) {
	round, err := scanRound(p.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return round, nil
}

func (p *PostgresRepository) FindLatestRound(ctx context.Context, track string) (*game.Round, error) {
	const op = "database.PostgresRepository.FindLatestRound"

	return p.findOne(ctx, op,
		`SELECT `+roundColumns+` FROM rounds WHERE track = $1 ORDER BY start_time DESC LIMIT 1`,
		track)
}

func (p *PostgresRepository) FindRound(ctx context.Context, track, period string) (*game.Round, error) {
	const op = "database.PostgresRepository.FindRound"

	return p.findOne(ctx, op,
		`SELECT `+roundColumns+` FROM rounds WHERE track = $1 AND period = $2`,
		track, period)
}

func (p *PostgresRepository) CreateRound(ctx context.Context, track, period string, start, end time.Time) (*game.Round, error) {
	const op = "database.PostgresRepository.CreateRound"

	r := game.Round{
		ID:        uuid.NewString(),
		Track:     track,
		Period:    period,
		StartTime: start,
		EndTime:   end,
		Status:    game.StatusOpen,
	}

	err := p.db.QueryRowContext(ctx,
		`INSERT INTO rounds (id, track, period, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		r.ID, r.Track, r.Period, r.StartTime, r.EndTime, string(r.Status),
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, game.ErrDuplicateRound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &r, nil
}

func (p *PostgresRepository) UpdateRoundStatus(ctx context.Context, id string, expected, next game.RoundStatus, result *game.Result) error {
	const op = "database.PostgresRepository.UpdateRoundStatus"

	if !expected.CanAdvanceTo(next) {
		return game.ErrStatusConflict
	}

	var (
		res sql.Result
		err error
	)
	if result != nil {
		res, err = p.db.ExecContext(ctx,
			`UPDATE rounds
			SET status = $3, result_number = $4, result_color = $5, result_size = $6, updated_at = NOW()
			WHERE id = $1 AND status = $2`,
			id, string(expected), string(next), result.Number, string(result.Color), string(result.Size))
	} else {
		res, err = p.db.ExecContext(ctx,
			`UPDATE rounds SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
			id, string(expected), string(next))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return game.ErrStatusConflict
	}
	return nil
}

func (p *PostgresRepository) FindSettledHistory(ctx context.Context, track string, limit int) ([]game.Round, error) {
	const op = "database.PostgresRepository.FindSettledHistory"

	rows, err := p.db.QueryContext(ctx,
		`SELECT `+roundColumns+` FROM rounds
		WHERE track = $1 AND status = 'settled'
		ORDER BY start_time DESC LIMIT $2`,
		track, sql.NullInt64{Int64: int64(limit), Valid: limit > 0})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var rounds []game.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rounds = append(rounds, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rounds, nil
}

func (p *PostgresRepository) CreateBet(ctx context.Context, bet game.Bet) (*game.Bet, error) {
	const op = "database.PostgresRepository.CreateBet"

	if bet.ID == "" {
		bet.ID = uuid.NewString()
	}
	if bet.CreatedAt.IsZero() {
		bet.CreatedAt = time.Now()
	}
	if bet.Selection == nil {
		return nil, fmt.Errorf("%s: bet has no selection", op)
	}

	err := p.db.QueryRowContext(ctx,
		`INSERT INTO bets (id, round_id, track, period, bet_type, bet_value,
			amount, multiplier, total_amount, result, payout, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`,
		bet.ID, bet.RoundID, bet.Track, bet.Period,
		string(bet.Selection.Type()), bet.Selection.Value(),
		bet.Amount, bet.Multiplier, bet.TotalAmount,
		string(bet.Outcome), bet.Payout, bet.CreatedAt,
	).Scan(&bet.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &bet, nil
}

func (p *PostgresRepository) FindBets(ctx context.Context, track string, limit int) ([]game.Bet, error) {
	const op = "database.PostgresRepository.FindBets"

	var (
		rows *sql.Rows
		err  error
	)
	// LIMIT NULL returns every row.
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
	if track == "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT `+betColumns+` FROM bets ORDER BY created_at DESC LIMIT $1`, lim)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT `+betColumns+` FROM bets WHERE track = $1 ORDER BY created_at DESC LIMIT $2`, track, lim)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bets, err := scanBets(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bets, nil
}

func (p *PostgresRepository) FindPendingBets(ctx context.Context, roundID string) ([]game.Bet, error) {
	const op = "database.PostgresRepository.FindPendingBets"

	rows, err := p.db.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE round_id = $1 AND result = 'pending' ORDER BY created_at`,
		roundID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bets, err := scanBets(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bets, nil
}

func (p *PostgresRepository) GradeBet(ctx context.Context, betID string, outcome game.BetOutcome, payout decimal.Decimal) error {
	const op = "database.PostgresRepository.GradeBet"

	res, err := p.db.ExecContext(ctx,
		`UPDATE bets SET result = $2, payout = $3 WHERE id = $1 AND result = 'pending'`,
		betID, string(outcome), payout)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return game.ErrStatusConflict
	}
	return nil
}

func scanBets(rows *sql.Rows) ([]game.Bet, error) {
	defer rows.Close()

	var bets []game.Bet
	for rows.Next() {
		var (
			b        game.Bet
			betType  string
			betValue string
			outcome  string
		)
		err := rows.Scan(&b.ID, &b.RoundID, &b.Track, &b.Period, &betType, &betValue,
			&b.Amount, &b.Multiplier, &b.TotalAmount, &outcome, &b.Payout, &b.CreatedAt)
		if err != nil {
			return nil, err
		}

		sel, err := game.ParseSelection(betType, betValue)
		if err != nil {
			return nil, fmt.Errorf("bet %s: %w", b.ID, err)
		}
		b.Selection = sel
		b.Outcome = game.BetOutcome(outcome)
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
