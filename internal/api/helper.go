package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"portfoliolab/internal/store"
)

// respondWithError sends an error response with the specified status code and message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response with the specified status code and payload
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// currentUser resolves the authenticated user from the session cookie. The
// server is the sole authority on session validity.
func (s *Server) currentUser(r *http.Request) (store.User, error) {
	session, err := s.sessions.Get(r, s.config.Session.Name)
	if err != nil {
		return store.User{}, err
	}
	userID, ok := session.Values["user_id"].(int)
	if !ok {
		return store.User{}, errors.New("no session")
	}
	return s.store.UserByID(userID)
}

// requireUser writes a 401 and returns false when no valid session exists.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (store.User, bool) {
	user, err := s.currentUser(r)
	if err != nil {
		s.respondWithJSON(w, http.StatusUnauthorized, map[string]string{"message": "No user logged in"})
		return store.User{}, false
	}
	return user, true
}

// parseDate accepts the date formats clients send: RFC3339, a bare
// ISO timestamp, or a plain day.
func parseDate(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
