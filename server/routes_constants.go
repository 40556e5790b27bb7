package server

// Route path constants
const (
	// Trigger routes
	RouteExecute = "/execute"
	RouteSummary = "/summary/{kind}"

	// Liveness
	RouteHealth = "/healthz"
)
