package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/service"
)

// AuthHandler serves registration, login and the current-user lookup.
//
//   - HandleRegister → POST /api/users
//   - HandleLogin    → POST /api/auth
//   - HandleMe       → GET  /api/auth (token required)
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// TokenResponse carries a freshly issued token.
type TokenResponse struct {
	Token string `json:"token"`
}

// HandleRegister creates an account. It does not log the user in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.auth.Register(r.Context(), in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeMsg(w, http.StatusOK, "User registered")
}

// HandleLogin exchanges email and password for a token.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// HandleMe returns the authenticated user. The password hash is never
// serialised (json:"-" on model.User).
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
