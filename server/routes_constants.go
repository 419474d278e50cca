package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteLogin        = "/login"
	RouteAuth         = "/auth"
	RouteAuthCallback = "/auth/callback"
	RouteAuthLogout   = "/auth/logout"

	// API Routes
	RouteAPIInfo = "/api/info"

	// RouteHome is where a login lands when no return URL was given.
	RouteHome = "/"
)

// Query parameter carrying the page to return to after login.
const redirectURLParam = "redirectUrl"
