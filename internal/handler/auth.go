package handler

import (
	"log/slog"
	"net/http"

	"github.com/workdoc/workdoc/internal/access"
	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/service"
)

// AuthHandler serves account registration, sign-in, and profile endpoints.
type AuthHandler struct {
	ids    *service.IdentityService
	tokens *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(ids *service.IdentityService, tokens *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{ids: ids, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an intern account and signs it in.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.ids.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Server error during registration")
		return
	}
	h.ids.TouchLastLogin(r.Context(), u)

	token, err := h.tokens.Issue(u)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Server error during registration")
		return
	}
	writeJSON(w, http.StatusCreated, model.AuthResponse{User: u.Profile(), Token: token})
}

// Login verifies credentials and returns a session token.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.ids.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Server error during login")
		return
	}
	h.ids.TouchLastLogin(r.Context(), u)

	token, err := h.tokens.Issue(u)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Server error during login")
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResponse{User: u.Profile(), Token: token})
}

// CreateFirstAdmin creates the initial admin account. It only succeeds while
// no admin exists.
// POST /api/auth/create-first-admin
func (h *AuthHandler) CreateFirstAdmin(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.ids.CreateFirstAdmin(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Server error creating admin")
		return
	}
	h.logger.Info("first admin created", "user_id", u.ID, "email", u.Email)
	writeJSON(w, http.StatusCreated, model.AuthResponse{User: u.Profile()})
}

// Profile returns the signed-in user.
// GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p := access.FromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	u, err := h.ids.GetUser(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Server error loading profile")
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResponse{User: u.Profile()})
}

// Logout acknowledges a sign-out. Tokens are stateless, so the client
// discards its own copy.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.MessageResponse{Success: true, Message: "Logged out successfully"})
}
