package web

import (
	"encoding/json"
	"net/http"

	"github.com/civreg/civreg/internal/core"
	"github.com/civreg/civreg/internal/logging"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleLogin exchanges credentials for an access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("user logged in", "user_id", user.ID)
	writeJSON(w, r, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// handleCurrentUser returns the authenticated user.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	writeJSON(w, r, http.StatusOK, user)
}

type updateSelfRequest struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

// handleUpdateCurrentUser lets a user change their own name or password.
// Role and active flags are only reachable through the superuser route.
func (s *Server) handleUpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req updateSelfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.service.UpdateUser(r.Context(), user.ID, core.UpdateUserParams{
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}
