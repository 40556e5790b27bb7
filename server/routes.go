package server

func (s *Server) initRoutes() {
	// Triggers
	s.RegisterRouteHandler("POST "+RouteExecute, ChainMiddleware(s.ExecuteHandler(), s.TriggerMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSummary, ChainMiddleware(s.SummaryHandler(), s.TriggerMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
}
