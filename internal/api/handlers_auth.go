package api

import (
	"net/http"
	"strings"

	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/models"
)

// registerRequest is the body of POST /api/auth/register.
type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  string `json:"last_name,omitempty" validate:"omitempty,max=100"`
}

// loginRequest is the body of POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// authResponse carries the issued token and the user it belongs to.
type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// handleRegister handles POST /api/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, apperrors.NewBadRequestError(
			"email must be valid and password must be at least 8 characters"))
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		respondError(w, apperrors.NewInternalError("failed to process password", err))
		return
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		respondError(w, err)
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		respondError(w, apperrors.NewInternalError("failed to issue token", err))
		return
	}

	respondMessage(w, http.StatusCreated, &authResponse{Token: token, User: user}, "account created")
}

// handleLogin handles POST /api/auth/login. Unknown email and wrong
// password produce the same response so accounts cannot be enumerated.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, apperrors.NewBadRequestError("email and password are required"))
		return
	}

	user, err := s.users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !s.hasher.Compare(user.PasswordHash, req.Password) {
		respondError(w, apperrors.NewUnauthorizedError("invalid email or password"))
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		respondError(w, apperrors.NewInternalError("failed to issue token", err))
		return
	}

	respondJSON(w, http.StatusOK, &authResponse{Token: token, User: user})
}
