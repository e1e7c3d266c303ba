package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"

	"wingo/internal/config"
	"wingo/internal/lib/logger/sl"
)

type Service interface {
	GetClient() *redis.Client
	Health() map[string]string
	Close() error
}

type service struct {
	client *redis.Client
	log    *slog.Logger
}

// New connects to Redis. Callers treat an error as "run without Redis":
// the cache is never required for round progression.
func New(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (Service, error) {
	const op = "cache.New"

	if log == nil {
		log = sl.Discard()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("redis connected", slog.String("addr", cfg.Addr))

	return &service{client: client, log: log}, nil
}

func (s *service) GetClient() *redis.Client {
	return s.client
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	_, err := s.client.Ping(ctx).Result()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("redis down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "Redis is healthy"

	poolStats := s.client.PoolStats()
	stats["hits"] = strconv.FormatUint(uint64(poolStats.Hits), 10)
	stats["misses"] = strconv.FormatUint(uint64(poolStats.Misses), 10)
	stats["timeouts"] = strconv.FormatUint(uint64(poolStats.Timeouts), 10)
	stats["total_conns"] = strconv.FormatUint(uint64(poolStats.TotalConns), 10)
	stats["idle_conns"] = strconv.FormatUint(uint64(poolStats.IdleConns), 10)
	stats["stale_conns"] = strconv.FormatUint(uint64(poolStats.StaleConns), 10)

	return stats
}

func (s *service) Close() error {
	s.log.Info("disconnecting from redis")
	return s.client.Close()
}
