package server

import (
	"context"
	"net/http"

	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the decoded *sessions.Session
const ContextKeySession ContextKey = "session"

// SessionFromContext returns the session attached by SessionMiddleware.
func SessionFromContext(ctx context.Context) (*sessions.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(*sessions.Session)
	return session, ok && session != nil
}

// UserFromContext returns the authenticated subject and the bearer token to
// act on the cluster API with.
func UserFromContext(ctx context.Context) (subject, bearerToken string, ok bool) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return "", "", false
	}
	return session.Subject(), session.BearerToken, true
}

// SessionMiddleware decodes the session cookies and attaches the session to
// the request context. A request without a valid session passes through
// unauthenticated; the cause is only logged.
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := sessions.PartsFromRequest(r)
		if parts == (sessions.Parts{}) {
			next(w, r)
			return
		}

		session, err := s.codec.Decode(parts)
		if err != nil {
			log.Debug().
				Str("reason", autherrors.Reason(err)).
				Str("path", r.URL.Path).
				Msg("Ignoring invalid session")
			next(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeySession, session)
		next(w, r.WithContext(ctx))
	}
}

// RequireSession rejects requests that SessionMiddleware did not
// authenticate. The response is the same whatever was wrong.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
