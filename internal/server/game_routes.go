package server

// RegisterGameRoutes registers the track read model and bet intake routes.
func (s *FiberServer) RegisterGameRoutes() {
	api := s.App.Group("/api/v1")

	tracks := api.Group("/tracks")
	tracks.Get("/", s.listTracksHandler)
	tracks.Get("/:track", s.trackHandler)
	tracks.Get("/:track/history", s.historyHandler)

	bets := api.Group("/bets")
	bets.Post("/", s.placeBetHandler)
	bets.Get("/", s.listBetsHandler)
}
