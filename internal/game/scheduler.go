package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"wingo/internal/lib/logger/sl"
)

const (
	DefaultPollInterval     = time.Second
	DefaultOperationTimeout = 5 * time.Second
)

// Scheduler polls the Manager on a fixed interval. Every poll ticks all
// tracks concurrently and waits for all of them before the next poll may
// start; a poll still running when the next one is due is skipped.
type Scheduler struct {
	manager *Manager
	// interval is rounded up to whole seconds by cron.Every.
	interval time.Duration
	timeout  time.Duration
	cron     *cron.Cron
	log      *slog.Logger
}

func NewScheduler(manager *Manager, interval, timeout time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = sl.Discard()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}

	log = log.With(slog.String("component", "scheduler"))
	clog := cronLogger{log: log}

	return &Scheduler{
		manager:  manager,
		interval: interval,
		timeout:  timeout,
		cron: cron.New(
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		log: log,
	}
}

// Start runs one poll immediately and then schedules the recurring poll.
func (s *Scheduler) Start(ctx context.Context) {
	s.pollAndLog(ctx)

	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.pollAndLog(ctx)
	}))
	s.cron.Start()

	s.log.Info("scheduler started",
		slog.Duration("interval", s.interval),
		slog.Int("tracks", len(s.manager.Tracks())),
	)
}

// Stop prevents further polls and waits for a running poll to finish or
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", sl.Err(ctx.Err()))
	}
}

// Poll ticks every track once and returns the failures of all tracks
// joined. A failing track does not affect the others; it is retried on the
// next poll.
func (s *Scheduler) Poll(ctx context.Context) error {
	tracks := s.manager.Tracks()
	errs := make([]error, len(tracks))

	var g errgroup.Group
	g.SetLimit(len(tracks))

	for i, t := range tracks {
		i, t := i, t
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			if err := s.manager.Tick(tctx, t); err != nil {
				errs[i] = fmt.Errorf("track %s: %w", t.ID, err)
				return errs[i]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return errors.Join(errs...)
	}
	return nil
}

func (s *Scheduler) pollAndLog(ctx context.Context) {
	if err := s.Poll(ctx); err != nil {
		s.log.Error("poll failed", sl.Err(err))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]interface{}{sl.Err(err)}, keysAndValues...)...)
}
