package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"

	"wingo/internal/game"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env   string
	Port  int
	Store string

	Database DatabaseConfig
	Redis    RedisConfig
	Game     GameConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

// DSN returns the connection URL understood by the pgx driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Schema)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GameConfig struct {
	Tracks           game.Tracks
	LockThreshold    time.Duration
	PollInterval     time.Duration
	OperationTimeout time.Duration
	MinBet           decimal.Decimal
	Location         *time.Location
}

// Load reads configuration from the environment. Invalid game settings are
// reported as errors; the service must not start with them.
func Load() (*Config, error) {
	cfg := &Config{
		Env:   getEnv("APP_ENV", EnvLocal),
		Port:  getEnvAsInt("PORT", 8080),
		Store: getEnv("STORE_DRIVER", StorePostgres),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Database: getEnv("DB_DATABASE", "wingo"),
			Username: getEnv("DB_USERNAME", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Schema:   getEnv("DB_SCHEMA", "public"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_URL", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
	}

	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("STORE_DRIVER: unsupported value %q", cfg.Store)
	}

	g, err := loadGame()
	if err != nil {
		return nil, err
	}
	cfg.Game = g

	return cfg, nil
}

// MustLoad is Load that panics on invalid configuration.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func loadGame() (GameConfig, error) {
	var g GameConfig

	tracks, err := ParseTracks(getEnv("GAME_TRACKS", "30s:30,60s:60,180s:180,300s:300"))
	if err != nil {
		return g, fmt.Errorf("GAME_TRACKS: %w", err)
	}
	g.Tracks = tracks

	lock, err := parseEnvInt("GAME_LOCK_THRESHOLD_SECONDS", 5)
	if err != nil {
		return g, err
	}
	if lock <= 0 {
		return g, fmt.Errorf("GAME_LOCK_THRESHOLD_SECONDS must be positive")
	}
	g.LockThreshold = time.Duration(lock) * time.Second

	for _, t := range tracks {
		if g.LockThreshold >= t.Duration {
			return g, fmt.Errorf("lock threshold %s leaves no betting window on track %s", g.LockThreshold, t.ID)
		}
	}

	poll, err := parseEnvInt("GAME_POLL_INTERVAL_MS", 1000)
	if err != nil {
		return g, err
	}
	if poll <= 0 {
		return g, fmt.Errorf("GAME_POLL_INTERVAL_MS must be positive")
	}
	g.PollInterval = time.Duration(poll) * time.Millisecond

	timeout, err := parseEnvInt("GAME_OPERATION_TIMEOUT_MS", 5000)
	if err != nil {
		return g, err
	}
	if timeout <= 0 {
		return g, fmt.Errorf("GAME_OPERATION_TIMEOUT_MS must be positive")
	}
	g.OperationTimeout = time.Duration(timeout) * time.Millisecond

	minBet, err := decimal.NewFromString(getEnv("GAME_MIN_BET", "10"))
	if err != nil || !minBet.IsPositive() {
		return g, fmt.Errorf("GAME_MIN_BET must be a positive number")
	}
	g.MinBet = minBet

	loc, err := time.LoadLocation(getEnv("GAME_TIMEZONE", "Local"))
	if err != nil {
		return g, fmt.Errorf("GAME_TIMEZONE: %w", err)
	}
	g.Location = loc

	return g, nil
}

// ParseTracks parses "id:seconds" pairs separated by commas.
func ParseTracks(raw string) (game.Tracks, error) {
	var tracks game.Tracks

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, secs, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("track %q: expected id:seconds", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(secs))
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", part, err)
		}
		tracks = append(tracks, game.Track{
			ID:       strings.TrimSpace(id),
			Duration: time.Duration(n) * time.Second,
		})
	}

	if err := tracks.Validate(); err != nil {
		return nil, err
	}
	return tracks, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// parseEnvInt is getEnvAsInt for settings that must not fall back silently.
func parseEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, val)
	}
	return n, nil
}
