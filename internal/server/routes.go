package server

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	s.App.Get("/health", s.healthHandler)

	s.RegisterGameRoutes()

	s.App.Use("/ws", s.upgradeMiddleware)
	s.App.Get("/ws", websocket.New(s.gameWebSocketHandler))
}

// upgradeMiddleware rejects plain HTTP requests and unknown tracks before
// the websocket handshake.
func (s *FiberServer) upgradeMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if track := c.Query("track"); track != "" {
		if _, err := s.manager.Track(track); err != nil {
			return s.errorResponse(c, err)
		}
	}
	return c.Next()
}
