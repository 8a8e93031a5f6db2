package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/xcloud/console-client/internal/http/middleware"
	"github.com/xcloud/console-client/internal/http/response"
	"github.com/xcloud/console-client/internal/service"
)

type UserHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewUserHandler(auth *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{auth: auth, logger: logger}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "missing auth context", "")
		return
	}
	user, err := h.auth.Profile(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(w, r, http.StatusNotFound, "user not found", "")
			return
		}
		h.logger.Error("load profile failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "failed to load profile", "")
		return
	}
	response.JSON(w, r, http.StatusOK, "ok", user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "failed to list users", "")
		return
	}
	response.JSON(w, r, http.StatusOK, "ok", users)
}
