package server

func (s *Server) initRoutes() {
	// LOGIN
	s.RegisterRouteHandler("GET "+RouteAuth, ChainMiddleware(s.AuthorizeHandler(), s.LoginMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.CallbackHandler(), s.LoginMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuth, ChainMiddleware(s.TokenLoginHandler(), s.LoginMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.StdMiddleware()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPIInfo, ChainMiddleware(s.InfoHandler(), s.APIMiddleware()...))
}
