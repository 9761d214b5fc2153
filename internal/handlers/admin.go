package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/access"
	"github.com/diewo77/go-crm/internal/services"
)

// AdminHandler manages user roles.
type AdminHandler struct {
	users *services.UserService
	gate  *access.Gate
}

func NewAdminHandler(users *services.UserService, gate *access.Gate) *AdminHandler {
	return &AdminHandler{users: users, gate: gate}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page := httpx.Page{Page: 1, Limit: len(users)}
	httpx.JSON(w, http.StatusOK, httpx.NewList(users, int64(len(users)), page))
}

type roleRequest struct {
	Role string `json:"role"`
}

// UpdateRole changes a user's role and drops the cached one so the new
// permissions apply on the next request.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req roleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.gate.InvalidateUser(u.ID)
	httpx.JSON(w, http.StatusOK, u)
}
