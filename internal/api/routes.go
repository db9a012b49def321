package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.Info)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	s.router.GET("/state", s.stateHandler.GetState)
	s.router.GET("/stream.mjpeg", s.stateHandler.Stream)

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}
}
