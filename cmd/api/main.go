package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"wingo/internal/cache"
	"wingo/internal/config"
	"wingo/internal/database"
	"wingo/internal/game"
	"wingo/internal/lib/logger/sl"
	"wingo/internal/server"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting wingo", slog.String("env", cfg.Env), slog.String("store", cfg.Store))
	log.Debug("debug messages are enabled")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db   database.Service
		repo game.Repository
	)
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store, state is lost on restart")
		repo = database.NewMemoryRepository()
	default:
		var err error
		db, err = database.New(ctx, cfg.Database, log)
		if err != nil {
			log.Error("failed to init storage", sl.Err(err))
			os.Exit(1)
		}
		if err := database.RunMigrations(db.DB()); err != nil {
			log.Error("failed to apply migrations", sl.Err(err))
			os.Exit(1)
		}
		repo = database.NewPostgresRepository(db.DB())
	}

	hub := game.NewHub(log)
	publishers := game.NewPublishers(log)
	publishers.Register("websocket", hub)

	var snapshots cache.Snapshots
	redisSvc, err := cache.New(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn("running without redis", sl.Err(err))
		snapshots = cache.NewMemorySnapshots(cache.DefaultSnapshotTTL)
	} else {
		publishers.Register("redis", cache.NewRoundPublisher(redisSvc.GetClient(), cache.DefaultRoundTTL))
		snapshots = cache.NewRedisSnapshots(redisSvc.GetClient(), cache.DefaultSnapshotTTL)
	}
	publishers.Register("snapshots", cache.NewInvalidator(snapshots))

	manager := game.NewManager(repo, game.Settings{
		Tracks:        cfg.Game.Tracks,
		LockThreshold: cfg.Game.LockThreshold,
		Location:      cfg.Game.Location,
	}, log, game.WithPublisher(publishers))

	intake := game.NewIntake(manager, repo, cfg.Game.MinBet, publishers, log)
	scheduler := game.NewScheduler(manager, cfg.Game.PollInterval, cfg.Game.OperationTimeout, log)

	srv := server.New(server.Deps{
		DB:         db,
		Cache:      redisSvc,
		Manager:    manager,
		Intake:     intake,
		Hub:        hub,
		Publishers: publishers,
		Snapshots:  snapshots,
	}, log)
	srv.RegisterFiberRoutes()

	go hub.Run(ctx)
	scheduler.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Info("server started", slog.String("address", addr))
		serverErr <- srv.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", sl.Err(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(); err != nil {
		log.Error("server shutdown failed", sl.Err(err))
	}

	log.Info("server stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}
