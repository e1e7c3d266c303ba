package game

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"wingo/internal/lib/logger/sl"
)

type EventType string

const (
	EventRoundCreated EventType = "round_created"
	EventRoundLocked  EventType = "round_locked"
	EventRoundSettled EventType = "round_settled"
	EventBetPlaced    EventType = "bet_placed"
)

// Event is a lifecycle notification delivered to live subscribers.
type Event struct {
	Type  EventType `json:"type"`
	Track string    `json:"track"`
	Round *Round    `json:"round,omitempty"`
	Bet   *BetView  `json:"bet,omitempty"`
	At    time.Time `json:"at"`
}

// Publisher delivers events to one sink (websocket clients, redis, ...).
// Delivery is best effort; the store stays the source of truth.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Publishers fans an event out to every registered sink.
type Publishers struct {
	mu    sync.RWMutex
	sinks map[string]Publisher
	log   *slog.Logger
}

func NewPublishers(log *slog.Logger) *Publishers {
	if log == nil {
		log = sl.Discard()
	}
	return &Publishers{
		sinks: make(map[string]Publisher),
		log:   log.With(slog.String("component", "publishers")),
	}
}

func (p *Publishers) Register(name string, pub Publisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks[name] = pub
	p.log.Info("publisher registered", slog.String("sink", name))
}

// Names lists the registered sinks in sorted order.
func (p *Publishers) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.sinks))
	for name := range p.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Publishers) Publish(ctx context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var errs []error
	for name, pub := range p.sinks {
		if err := pub.Publish(ctx, ev); err != nil {
			p.log.Warn("publish failed",
				slog.String("sink", name),
				slog.String("event", string(ev.Type)),
				sl.Err(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
