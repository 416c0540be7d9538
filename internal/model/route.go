package model

import "net/http"

// Route binds one inbound endpoint to its upstream counterpart.
type Route struct {
	Method       string
	Path         string
	UpstreamPath string
	// FailureMessage is returned as {"error": ...} with a 500 when the
	// upstream round trip fails for any reason.
	FailureMessage string
}

// CampusRideRoutes are the forwarding routes of the CampusRide relay.
func CampusRideRoutes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/groups", UpstreamPath: "/groups", FailureMessage: "Failed to fetch groups"},
		{Method: http.MethodPost, Path: "/recommend", UpstreamPath: "/find_groups", FailureMessage: "Internal Server Error"},
		{Method: http.MethodPost, Path: "/join_group", UpstreamPath: "/join_group", FailureMessage: "Internal Server Error"},
		{Method: http.MethodPost, Path: "/create_group", UpstreamPath: "/create_group", FailureMessage: "Internal Server Error"},
	}
}

// TripRoutes are the forwarding routes of the trip relay.
func TripRoutes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/join-trip", UpstreamPath: "/search-groups", FailureMessage: "Flask service unavailable"},
	}
}

// Paths returns the inbound paths of routes, in order.
func Paths(routes []Route) []string {
	paths := make([]string, 0, len(routes))
	for _, r := range routes {
		paths = append(paths, r.Path)
	}
	return paths
}
