package server

import "net/http"

type infoResponse struct {
	Version string `json:"version"`
	User    string `json:"user"`
}

// InfoHandler reports the dashboard version and who is signed in.
func (s *Server) InfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, _, ok := UserFromContext(r.Context())
		if !ok {
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, infoResponse{Version: s.version, User: subject})
	}
}
