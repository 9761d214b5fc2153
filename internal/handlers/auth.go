package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/access"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
)

type AuthHandler struct {
	users    *services.UserService
	sessions *auth.Sessions
	gate     *access.Gate
}

func NewAuthHandler(users *services.UserService, sessions *auth.Sessions, gate *access.Gate) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, gate: gate}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	services.SignupInput
	Role string `json:"role"`
}

// meResponse is the signed-in user with the permissions of their role.
type meResponse struct {
	User        *models.User `json:"user"`
	Permissions []string     `json:"permissions"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.CreateSession(w, user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.me(user))
}

// Signup registers an account. The first account of an empty database is
// open to anyone and becomes admin; afterwards only admins may add users.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.users.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	bootstrap := n == 0
	if !bootstrap {
		if _, ok := auth.UserIDFromContext(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		if err := h.gate.Authorize(r.Context(), access.ResourceUser, access.ActionCreate); err != nil {
			writeError(w, r, err)
			return
		}
	}
	user, err := h.users.Register(r.Context(), req.SignupInput, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bootstrap {
		if err := h.sessions.CreateSession(w, user.ID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	httpx.JSON(w, http.StatusCreated, h.me(user))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.me(user))
}

func (h *AuthHandler) me(u *models.User) meResponse {
	perms := []string{}
	if role := access.RoleByName(u.Role); role != nil {
		for _, p := range role.Permissions() {
			perms = append(perms, string(p))
		}
	}
	return meResponse{User: u, Permissions: perms}
}
