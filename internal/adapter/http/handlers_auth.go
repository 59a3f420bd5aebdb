package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Strob0t/StackForge/internal/domain/user"
	"github.com/Strob0t/StackForge/internal/middleware"
	"github.com/Strob0t/StackForge/internal/service"
)

// Register handles POST /api/v1/auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.RegisterRequest](w, r)
	if !ok {
		return
	}
	res, err := h.Auth.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}
	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			slog.Debug("login failed", "login", req.Login)
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeDomainError(w, err, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMe handles GET /api/v1/auth/me
func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.Me(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe handles PUT /api/v1/auth/me
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.UpdateProfileRequest](w, r)
	if !ok {
		return
	}
	u, err := h.Auth.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ChangePassword handles POST /api/v1/auth/password
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.ChangePasswordRequest](w, r)
	if !ok {
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), middleware.UserIDFromContext(r.Context()), req); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
