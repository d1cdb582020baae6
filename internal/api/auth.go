package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	Users  *lending.Directory
	DB     *sql.DB
	Tokens *auth.Tokens
}

type signupRequest struct {
	Username      string                   `json:"username"`
	Email         string                   `json:"email"`
	Password      string                   `json:"password"`
	School        string                   `json:"school"`
	Degree        string                   `json:"degree"`
	Program       string                   `json:"program"`
	PossibleDates []model.AvailabilitySlot `json:"possible_dates"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Users.Signup(r.Context(), lending.SignupRequest{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		School:        req.School,
		Degree:        req.Degree,
		Program:       req.Program,
		PossibleDates: req.PossibleDates,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, user)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, r, model.Validationf("email and password required"))
		return
	}

	user, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if model.KindOf(err) == model.KindAuth {
			slog.Warn("login failed", "email", req.Email, "remote", r.RemoteAddr)
		}
		writeError(w, r, err)
		return
	}

	token, _, err := h.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user logged in", "user", user.Username)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout. The presented token is revoked
// until it would have expired anyway.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, r, errNotAuthenticated)
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user logged out", "user", claims.Username)
	jsonResponse(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, r, model.Validationf("current and new password required"))
		return
	}

	if err := h.Users.ChangePassword(r.Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, messageResponse{Message: "password updated"})
}
