package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"wingo/internal/game"
)

const (
	snapshotKeyFmt = "wingo:snapshot:%s"

	DefaultSnapshotTTL = 2 * time.Second
)

// Snapshots caches the read model of each track. Entries are dropped when a
// round event for the track is published, so the TTL only bounds staleness
// on instances that did not see the event.
type Snapshots interface {
	Get(ctx context.Context, track string) (game.Snapshot, bool)
	Set(ctx context.Context, snap game.Snapshot)
	Invalidate(ctx context.Context, track string)
}

// RedisSnapshots stores snapshots in Redis, shared by every instance.
type RedisSnapshots struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshots(client *redis.Client, ttl time.Duration) *RedisSnapshots {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisSnapshots{client: client, ttl: ttl}
}

func snapshotKey(track string) string {
	return fmt.Sprintf(snapshotKeyFmt, track)
}

func (s *RedisSnapshots) Get(ctx context.Context, track string) (game.Snapshot, bool) {
	var snap game.Snapshot

	data, err := s.client.Get(ctx, snapshotKey(track)).Bytes()
	if err != nil {
		return snap, false
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, false
	}
	return snap, true
}

func (s *RedisSnapshots) Set(ctx context.Context, snap game.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	s.client.Set(ctx, snapshotKey(snap.Track), data, s.ttl)
}

func (s *RedisSnapshots) Invalidate(ctx context.Context, track string) {
	s.client.Del(ctx, snapshotKey(track))
}

// MemorySnapshots is the in-process fallback used when Redis is not
// reachable.
type MemorySnapshots struct {
	c *gocache.Cache
}

func NewMemorySnapshots(ttl time.Duration) *MemorySnapshots {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &MemorySnapshots{c: gocache.New(ttl, 10*ttl)}
}

func (s *MemorySnapshots) Get(_ context.Context, track string) (game.Snapshot, bool) {
	v, ok := s.c.Get(track)
	if !ok {
		return game.Snapshot{}, false
	}
	snap, ok := v.(game.Snapshot)
	return snap, ok
}

func (s *MemorySnapshots) Set(_ context.Context, snap game.Snapshot) {
	s.c.SetDefault(snap.Track, snap)
}

func (s *MemorySnapshots) Invalidate(_ context.Context, track string) {
	s.c.Delete(track)
}

// Invalidator drops cached snapshots of a track whenever one of its rounds
// changes state.
type Invalidator struct {
	snapshots Snapshots
}

func NewInvalidator(s Snapshots) *Invalidator {
	return &Invalidator{snapshots: s}
}

func (i *Invalidator) Publish(ctx context.Context, ev game.Event) error {
	if ev.Round != nil {
		i.snapshots.Invalidate(ctx, ev.Track)
	}
	return nil
}
