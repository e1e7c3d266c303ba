package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/exp/slog"

	"wingo/internal/cache"
	"wingo/internal/database"
	"wingo/internal/game"
	"wingo/internal/lib/logger/sl"
)

// Deps are the components the HTTP layer serves. DB and Cache are nil when
// the service runs on the memory store or without Redis.
type Deps struct {
	DB         database.Service
	Cache      cache.Service
	Manager    *game.Manager
	Intake     *game.Intake
	Hub        *game.Hub
	Publishers *game.Publishers
	Snapshots  cache.Snapshots
}

type FiberServer struct {
	*fiber.App

	db         database.Service
	cache      cache.Service
	manager    *game.Manager
	intake     *game.Intake
	hub        *game.Hub
	publishers *game.Publishers
	snapshots  cache.Snapshots
	log        *slog.Logger
}

func New(deps Deps, log *slog.Logger) *FiberServer {
	if log == nil {
		log = sl.Discard()
	}

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "wingo",
			AppName:       "wingo",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		db:         deps.DB,
		cache:      deps.Cache,
		manager:    deps.Manager,
		intake:     deps.Intake,
		hub:        deps.Hub,
		publishers: deps.Publishers,
		snapshots:  deps.Snapshots,
		log:        log.With(slog.String("component", "server")),
	}

	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	return server
}

// Shutdown stops accepting requests and closes the stores.
func (s *FiberServer) Shutdown() error {
	s.log.Info("shutting down")

	err := s.App.Shutdown()

	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return err
}
