package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"portfoliolab/internal/store"
)

// Register creates a new account from {username, password}.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		s.respondWithError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	if _, err := s.store.CreateUser(req.Username, string(hash)); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.respondWithError(w, http.StatusConflict, "Username already taken")
			return
		}
		s.logger.Error("Failed to create user: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	s.respondWithJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

// Login verifies credentials and opens a cookie session. The response body
// carries the server-side identity so clients never have to trust the
// submitted form value.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := s.store.UserByUsername(req.Username)
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	}
	if err != nil {
		s.respondWithJSON(w, http.StatusUnauthorized, map[string]string{"message": "Login failed"})
		return
	}

	session, err := s.sessions.Get(r, s.config.Session.Name)
	if err != nil && session == nil {
		s.logger.Error("Failed to open session: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}
	session.Values["user_id"] = user.ID
	if err := session.Save(r, w); err != nil {
		s.logger.Error("Failed to save session: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"username": user.Username,
	})
}

// Logout clears the session cookie.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}

	session, _ := s.sessions.Get(r, s.config.Session.Name)
	session.Options.MaxAge = -1
	delete(session.Values, "user_id")
	if err := session.Save(r, w); err != nil {
		s.logger.Error("Failed to clear session: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// CurrentUser reports the session identity, if any.
func (s *Server) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.respondWithJSON(w, http.StatusUnauthorized, map[string]string{"message": "No user logged in"})
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{"username": user.Username})
}
