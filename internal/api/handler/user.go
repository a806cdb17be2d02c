package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/amiwrpremium/xtls-crud/internal/service"
	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
)

// UserHandler serves /api/v1/users for superusers.
type UserHandler struct {
	users service.UserService
	responder
}

// NewUserHandler wires the user endpoints.
func NewUserHandler(users service.UserService, manager *i18n.Manager, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, responder: newResponder(manager, logger)}
}

// List GET /users?keyword=&skip=&limit=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, ok := queryInt(r, "skip")
	if !ok {
		h.invalidParam(w, r, "skip")
		return
	}
	limit, ok := queryInt(r, "limit")
	if !ok {
		h.invalidParam(w, r, "limit")
		return
	}
	list, err := h.users.List(r.Context(), service.UserListInput{
		Keyword: strings.TrimSpace(r.URL.Query().Get("keyword")),
		Skip:    valueOf(skip),
		Limit:   valueOf(limit),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Create POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateUserInput
	if !h.decodeOrFail(w, r, &input) {
		return
	}
	user, err := h.users.Create(r.Context(), input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}
