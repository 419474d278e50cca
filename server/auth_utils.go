package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-dashboard-auth/sessions"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// setSessionCookies writes the three session cookies. Secure is set for
// HTTPS requests and whenever the configuration forces it.
func (s *Server) setSessionCookies(w http.ResponseWriter, r *http.Request, cookie *sessions.SplitCookie) {
	cookie.Write(w, s.secureCookies || getScheme(r) == "https")
}

// redirect answers with a bare 302 so the location is sent exactly as given.
func redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusFound)
}

// redirectWithError sends the browser to path with the message in the
// fragment, where only the page script can read it.
func redirectWithError(w http.ResponseWriter, path, errorMsg string) {
	redirect(w, path+"#error="+encodeURIComponent(errorMsg))
}

// encodeURIComponent escapes s the way the browser function of the same
// name does, so the login page can decode it with decodeURIComponent.
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	return strings.NewReplacer(
		"+", "%20",
		"%21", "!",
		"%27", "'",
		"%28", "(",
		"%29", ")",
		"%2A", "*",
	).Replace(escaped)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to write JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, errorCode string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": errorCode})
}
