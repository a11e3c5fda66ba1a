package handler

import (
	"log/slog"
	"net/http"

	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/service"
	"github.com/workdoc/workdoc/internal/store"
)

// SystemHandler serves admin account management and submission statistics.
type SystemHandler struct {
	ids    *service.IdentityService
	store  *store.Store
	logger *slog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(ids *service.IdentityService, st *store.Store, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{ids: ids, store: st, logger: logger}
}

// ListUsers returns every account.
// GET /api/admin/users
func (h *SystemHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.ids.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to list users")
		return
	}
	out := make([]model.Profile, len(users))
	for i := range users {
		out[i] = users[i].Profile()
	}
	writeJSON(w, http.StatusOK, out)
}

type activeRequest struct {
	Email string `json:"email"`
}

// DeactivateUser disables sign-in for an account.
// POST /api/admin/users/deactivate
func (h *SystemHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// ActivateUser re-enables sign-in for an account.
// POST /api/admin/users/activate
func (h *SystemHandler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *SystemHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	var req activeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var err error
	msg := "User activated"
	if active {
		err = h.ids.ActivateUser(r.Context(), req.Email)
	} else {
		err = h.ids.DeactivateUser(r.Context(), req.Email)
		msg = "User deactivated"
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Success: true, Message: msg})
}

type statsResponse struct {
	Users       int                  `json:"users"`
	Submissions int                  `json:"submissions"`
	ByStatus    map[model.Status]int `json:"byStatus"`
}

// Stats returns account and submission counts.
// GET /api/admin/stats
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.ids.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to load statistics")
		return
	}
	counts, err := h.store.CountSubmissions(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to load statistics")
		return
	}
	resp := statsResponse{Users: len(users), ByStatus: counts}
	for _, n := range counts {
		resp.Submissions += n
	}
	writeJSON(w, http.StatusOK, resp)
}
