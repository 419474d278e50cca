package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	"github.com/rs/zerolog/log"
)

// maxTokenLoginBody bounds the JSON body accepted by the token login.
const maxTokenLoginBody = 64 << 10

// AuthorizeHandler starts the OIDC login by redirecting to the identity
// provider. ?redirectUrl= names the page to return to afterwards.
func (s *Server) AuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnURL := r.URL.Query().Get(redirectURLParam)
		authURL, err := s.auth.AuthorizationURL(r.Context(), returnURL)
		if err != nil {
			log.Err(err).Msg("Failed to build authorization URL")
			redirectWithError(w, RouteLogin, auth.ReasonOf(err))
			return
		}
		redirect(w, authURL)
	}
}

// CallbackHandler receives the authorization code, establishes the session
// and sends the browser back to where the login started.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := auth.CallbackParametersFromQuery(r.URL.Query())
		login, err := s.auth.HandleCallback(r.Context(), params)
		if err != nil {
			redirectWithError(w, RouteLogin, auth.ReasonOf(err))
			return
		}
		s.setSessionCookies(w, r, login.Cookie)
		redirect(w, login.ReturnURL)
	}
}

type tokenLoginRequest struct {
	Token string `json:"token"`
}

type tokenLoginResponse struct {
	ID string `json:"id"`
}

// TokenLoginHandler logs in with a bearer token posted as {"token": "..."}.
func (s *Server) TokenLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body tokenLoginRequest
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTokenLoginBody))
		if err := decoder.Decode(&body); err != nil || body.Token == "" {
			writeJSONError(w, "bad_request", http.StatusBadRequest)
			return
		}

		login, err := s.auth.LoginWithToken(r.Context(), body.Token)
		if err != nil {
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.setSessionCookies(w, r, login.Cookie)
		writeJSON(w, http.StatusOK, tokenLoginResponse{ID: login.Claims.Subject})
	}
}

// LogoutHandler clears the session cookies and sends the browser to the
// login page. It works the same with or without a session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.setSessionCookies(w, r, s.auth.Logout())
		redirect(w, RouteLogin)
	}
}
