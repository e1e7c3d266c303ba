package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wingo/internal/game"
)

const (
	EventsChannel = "wingo:events"
	roundKeyFmt   = "wingo:round:%s"

	// DefaultRoundTTL bounds how long a stale round survives in Redis if
	// the service stops publishing.
	DefaultRoundTTL = 10 * time.Minute
)

// RoundKey is the Redis key holding the latest round of track.
func RoundKey(track string) string {
	return fmt.Sprintf(roundKeyFmt, track)
}

// RoundPublisher mirrors lifecycle events into Redis: every event is
// published on EventsChannel and round events also overwrite RoundKey.
type RoundPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoundPublisher(client *redis.Client, ttl time.Duration) *RoundPublisher {
	if ttl <= 0 {
		ttl = DefaultRoundTTL
	}
	return &RoundPublisher{client: client, ttl: ttl}
}

func (p *RoundPublisher) Publish(ctx context.Context, ev game.Event) error {
	const op = "cache.RoundPublisher.Publish"

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := p.client.TxPipeline()
	if ev.Round != nil {
		round, err := json.Marshal(ev.Round)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		pipe.Set(ctx, RoundKey(ev.Track), round, p.ttl)
	}
	pipe.Publish(ctx, EventsChannel, data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
