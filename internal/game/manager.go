package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/slog"

	"wingo/internal/lib/logger/sl"
)

const (
	// DefaultLockThreshold is how long before a round ends betting closes.
	DefaultLockThreshold = 5 * time.Second
	// HistorySize is the number of settled outcomes in a Snapshot.
	HistorySize = 5
)

type Settings struct {
	Tracks        Tracks
	LockThreshold time.Duration
	// Location is the reference zone for period numbering.
	Location *time.Location
}

// Manager drives the round lifecycle of every track. It keeps no schedule
// in memory: each call re-reads the store and reconciles it with the
// wall-clock slot, so restarts and duplicate calls are harmless.
type Manager struct {
	repo          Repository
	tracks        Tracks
	lockThreshold time.Duration
	loc           *time.Location
	outcomes      OutcomeSource
	publisher     Publisher
	grader        Grader
	now           func() time.Time
	log           *slog.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithOutcomeSource(src OutcomeSource) Option {
	return func(m *Manager) { m.outcomes = src }
}

func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithGrader enables grading of pending bets once their round settles.
func WithGrader(g Grader) Option {
	return func(m *Manager) { m.grader = g }
}

func NewManager(repo Repository, settings Settings, log *slog.Logger, opts ...Option) *Manager {
	if log == nil {
		log = sl.Discard()
	}
	m := &Manager{
		repo:          repo,
		tracks:        settings.Tracks,
		lockThreshold: settings.LockThreshold,
		loc:           settings.Location,
		outcomes:      CryptoOutcome{},
		now:           time.Now,
		log:           log.With(slog.String("component", "manager")),
	}
	if len(m.tracks) == 0 {
		m.tracks = DefaultTracks
	}
	if m.lockThreshold <= 0 {
		m.lockThreshold = DefaultLockThreshold
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Tracks() Tracks { return m.tracks }

func (m *Manager) LockThreshold() time.Duration { return m.lockThreshold }

func (m *Manager) Now() time.Time { return m.now() }

// Track resolves a track id, returning a validation error for unknown ids.
func (m *Manager) Track(id string) (Track, error) {
	t, ok := m.tracks.Lookup(id)
	if !ok {
		return Track{}, &Error{Kind: KindValidation, Op: "game.Manager.Track", Msg: fmt.Sprintf("unknown track %q", id), Err: ErrUnknownTrack}
	}
	return t, nil
}

// EnsureRound makes sure the track has an active round. When the latest
// round is settled, or none exists, a round for the current slot is
// created. Creating a round that already exists is not an error.
func (m *Manager) EnsureRound(ctx context.Context, t Track) (*Round, error) {
	const op = "game.Manager.EnsureRound"

	latest, err := m.repo.FindLatestRound(ctx, t.ID)
	if err != nil {
		return nil, repositoryError(op, err)
	}
	if latest != nil && latest.Status != StatusSettled {
		return latest, nil
	}

	return m.createCurrent(ctx, t)
}

func (m *Manager) createCurrent(ctx context.Context, t Track) (*Round, error) {
	const op = "game.Manager.createCurrent"

	slot := Align(t.Duration, m.now())
	period := EncodePeriod(t, slot.Start, m.loc)

	existing, err := m.repo.FindRound(ctx, t.ID, period)
	if err != nil {
		return nil, repositoryError(op, err)
	}
	if existing != nil {
		return existing, nil
	}

	round, err := m.repo.CreateRound(ctx, t.ID, period, slot.Start, slot.End)
	if errors.Is(err, ErrDuplicateRound) {
		m.log.Debug("round created concurrently", slog.String("track", t.ID), slog.String("period", period))
		existing, err = m.repo.FindRound(ctx, t.ID, period)
		if err != nil {
			return nil, repositoryError(op, err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, repositoryError(op, err)
	}

	m.log.Info("round opened",
		slog.String("track", t.ID),
		slog.String("period", period),
		slog.Time("ends_at", round.EndTime),
	)
	m.publish(ctx, Event{Type: EventRoundCreated, Track: t.ID, Round: round})

	return round, nil
}

// Tick advances the latest round of the track according to the clock.
func (m *Manager) Tick(ctx context.Context, t Track) error {
	const op = "game.Manager.Tick"

	latest, err := m.repo.FindLatestRound(ctx, t.ID)
	if err != nil {
		return repositoryError(op, err)
	}
	if latest == nil || latest.Status == StatusSettled {
		_, err = m.EnsureRound(ctx, t)
		return err
	}

	left := latest.TimeLeft(m.now())
	switch {
	case left <= 0:
		return m.Settle(ctx, latest)
	case left <= m.lockThreshold && latest.Status == StatusOpen:
		return m.lock(ctx, latest)
	}
	return nil
}

func (m *Manager) lock(ctx context.Context, round *Round) error {
	const op = "game.Manager.lock"

	err := m.repo.UpdateRoundStatus(ctx, round.ID, StatusOpen, StatusLocked, nil)
	if errors.Is(err, ErrStatusConflict) {
		m.log.Debug("round already advanced", slog.String("round_id", round.ID))
		return nil
	}
	if err != nil {
		return repositoryError(op, err)
	}

	locked := *round
	locked.Status = StatusLocked
	m.log.Info("round locked", slog.String("track", round.Track), slog.String("period", round.Period))
	m.publish(ctx, Event{Type: EventRoundLocked, Track: round.Track, Round: &locked})
	return nil
}

// Settle draws the outcome of round, persists it in one conditional write
// and opens the successor round right away.
func (m *Manager) Settle(ctx context.Context, round *Round) error {
	const op = "game.Manager.Settle"

	t, err := m.Track(round.Track)
	if err != nil {
		return err
	}

	if round.Status != StatusSettled {
		result, err := m.outcomes.Generate()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		err = m.repo.UpdateRoundStatus(ctx, round.ID, round.Status, StatusSettled, &result)
		switch {
		case errors.Is(err, ErrStatusConflict):
			m.log.Debug("round already advanced", slog.String("round_id", round.ID))
		case err != nil:
			return repositoryError(op, err)
		default:
			settled := *round
			settled.Status = StatusSettled
			settled.Result = &result

			m.log.Info("round settled",
				slog.String("track", round.Track),
				slog.String("period", round.Period),
				sl.Any("result", result),
			)
			m.publish(ctx, Event{Type: EventRoundSettled, Track: round.Track, Round: &settled})
			m.grade(ctx, settled)
		}
	}

	_, err = m.EnsureRound(ctx, t)
	return err
}

// OpenRound returns the open round of the track together with the time
// left until it ends.
func (m *Manager) OpenRound(ctx context.Context, t Track) (*Round, time.Duration, error) {
	const op = "game.Manager.OpenRound"

	latest, err := m.repo.FindLatestRound(ctx, t.ID)
	if err != nil {
		return nil, 0, repositoryError(op, err)
	}
	if latest == nil || latest.Status != StatusOpen {
		return nil, 0, conflictError(op, fmt.Sprintf("no open round for track %s", t.ID))
	}
	return latest, latest.TimeLeft(m.now()), nil
}

// Snapshot builds the read model of the track from the store.
func (m *Manager) Snapshot(ctx context.Context, t Track) (Snapshot, error) {
	const op = "game.Manager.Snapshot"

	snap := Snapshot{Track: t.ID, History: []HistoryEntry{}}

	latest, err := m.repo.FindLatestRound(ctx, t.ID)
	if err != nil {
		return snap, repositoryError(op, err)
	}
	if latest != nil {
		end := latest.EndTime
		snap.RoundID = latest.ID
		snap.Period = latest.Period
		snap.Status = latest.Status
		snap.EndTime = &end
		snap.SecondsLeft = secondsLeft(latest.TimeLeft(m.now()))
	}

	history, err := m.History(ctx, t, HistorySize)
	if err != nil {
		return snap, err
	}
	snap.History = history

	return snap, nil
}

// History returns up to limit settled outcomes of the track, most recent
// first.
func (m *Manager) History(ctx context.Context, t Track, limit int) ([]HistoryEntry, error) {
	const op = "game.Manager.History"

	rounds, err := m.repo.FindSettledHistory(ctx, t.ID, limit)
	if err != nil {
		return nil, repositoryError(op, err)
	}

	history := make([]HistoryEntry, 0, len(rounds))
	for _, r := range rounds {
		if r.Result == nil {
			continue
		}
		history = append(history, HistoryEntry{
			Period: r.Period,
			Number: r.Result.Number,
			Color:  r.Result.Color,
			Size:   r.Result.Size,
		})
	}
	return history, nil
}

func secondsLeft(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

func (m *Manager) publish(ctx context.Context, ev Event) {
	if m.publisher == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = m.now()
	}
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.log.Warn("event not delivered", slog.String("event", string(ev.Type)), sl.Err(err))
	}
}
