package server

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/exp/slog"

	"wingo/internal/game"
	"wingo/internal/lib/logger/sl"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	db := map[string]string{"status": "memory"}
	if s.db != nil {
		db = s.db.Health()
	}
	redis := map[string]string{"status": "disabled"}
	if s.cache != nil {
		redis = s.cache.Health()
	}
	publishers := []string{}
	if s.publishers != nil {
		publishers = s.publishers.Names()
	}

	return c.JSON(fiber.Map{
		"database": db,
		"cache":    redis,
		"game": fiber.Map{
			"status":            "running",
			"tracks":            len(s.manager.Tracks()),
			"connected_clients": s.hub.GetClientCount(),
			"publishers":        publishers,
		},
	})
}

type trackInfo struct {
	ID              string `json:"id"`
	DurationSeconds int    `json:"duration_seconds"`
	game.Snapshot
}

func (s *FiberServer) listTracksHandler(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var out []trackInfo
	for _, t := range s.manager.Tracks() {
		snap, err := s.snapshot(ctx, t)
		if err != nil {
			return s.errorResponse(c, err)
		}
		out = append(out, trackInfo{ID: t.ID, DurationSeconds: t.Seconds(), Snapshot: snap})
	}

	return c.JSON(fiber.Map{"tracks": out})
}

func (s *FiberServer) trackHandler(c *fiber.Ctx) error {
	t, err := s.manager.Track(c.Params("track"))
	if err != nil {
		return s.errorResponse(c, err)
	}

	snap, err := s.snapshot(c.UserContext(), t)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(snap)
}

func (s *FiberServer) historyHandler(c *fiber.Ctx) error {
	t, err := s.manager.Track(c.Params("track"))
	if err != nil {
		return s.errorResponse(c, err)
	}

	history, err := s.manager.History(c.UserContext(), t, listLimit(c))
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"track": t.ID, "history": history})
}

func (s *FiberServer) placeBetHandler(c *fiber.Ctx) error {
	var req game.BetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   game.KindValidation.String(),
			"message": "invalid request body",
		})
	}

	bet, err := s.intake.PlaceBet(c.UserContext(), req)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bet.View())
}

func (s *FiberServer) listBetsHandler(c *fiber.Ctx) error {
	bets, err := s.intake.ListBets(c.UserContext(), c.Query("track"), listLimit(c))
	if err != nil {
		return s.errorResponse(c, err)
	}

	views := make([]game.BetView, 0, len(bets))
	for _, b := range bets {
		views = append(views, b.View())
	}
	return c.JSON(fiber.Map{"bets": views})
}

// snapshot serves the read model from the snapshot cache when possible. A
// cached entry whose round is due to change status is rebuilt, so a write
// that raced an invalidation cannot outlive the transition.
func (s *FiberServer) snapshot(ctx context.Context, t game.Track) (game.Snapshot, error) {
	if s.snapshots != nil {
		now := s.manager.Now()
		if snap, ok := s.snapshots.Get(ctx, t.ID); ok && snap.FreshAt(now, s.manager.LockThreshold()) {
			return snap.At(now), nil
		}
	}

	snap, err := s.manager.Snapshot(ctx, t)
	if err != nil {
		return snap, err
	}
	if s.snapshots != nil {
		s.snapshots.Set(ctx, snap)
	}
	return snap, nil
}

func listLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// errorResponse maps engine errors to HTTP statuses. Store failures are
// logged and answered with a generic message.
func (s *FiberServer) errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "internal_error"

	switch {
	case game.IsValidation(err):
		status, code = fiber.StatusBadRequest, game.KindValidation.String()
	case game.IsConflict(err):
		status, code = fiber.StatusConflict, game.KindConflict.String()
	default:
		s.log.Error("request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			sl.Err(err),
		)
	}

	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": game.PublicMessage(err),
	})
}

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// gameWebSocketHandler streams lifecycle events. The optional track query
// parameter limits the stream to one track.
func (s *FiberServer) gameWebSocketHandler(conn *websocket.Conn) {
	track := conn.Query("track")
	log := s.log.With(slog.String("remote", conn.RemoteAddr().String()), slog.String("track", track))
	log.Debug("websocket connected")

	client := s.hub.RegisterClient(conn, track)
	defer s.hub.UnregisterClient(client)

	ctx := context.Background()
	for _, t := range s.manager.Tracks() {
		if track != "" && t.ID != track {
			continue
		}
		snap, err := s.snapshot(ctx, t)
		if err != nil {
			log.Warn("initial snapshot failed", sl.Err(err))
			continue
		}
		client.Send(wsMessage{Type: "snapshot", Data: snap})
	}

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Debug("websocket closed", sl.Err(err))
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			client.Send(wsMessage{Type: "pong"})
		}
	}
}
