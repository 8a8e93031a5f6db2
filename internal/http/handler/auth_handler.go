package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/http/middleware"
	"github.com/xcloud/console-client/internal/http/response"
	"github.com/xcloud/console-client/internal/observability"
	"github.com/xcloud/console-client/internal/service"
)

type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "username and password are required", "")
		return
	}
	pair, err := h.auth.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountDisabled):
			observability.Audit(h.logger, r, "auth.login.rejected", "username", req.Username, "reason", err.Error())
			response.Error(w, r, http.StatusUnauthorized, err.Error(), "")
		default:
			h.logger.Error("login failed", "error", err)
			response.Error(w, r, http.StatusInternalServerError, "login failed", "")
		}
		return
	}
	observability.Audit(h.logger, r, "auth.login", "username", req.Username)
	response.JSON(w, r, http.StatusOK, "login succeeded", pair)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		response.Error(w, r, http.StatusBadRequest, "refresh_token is required", "")
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefreshTokenReuseDetected), errors.Is(err, service.ErrInvalidRefreshToken):
			observability.Audit(h.logger, r, "auth.refresh.rejected", "reason", err.Error())
			response.Error(w, r, http.StatusUnauthorized, err.Error(), "")
		default:
			h.logger.Error("refresh failed", "error", err)
			response.Error(w, r, http.StatusInternalServerError, "refresh failed", "")
		}
		return
	}
	response.JSON(w, r, http.StatusOK, "token refreshed", pair)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "missing auth context", "")
		return
	}
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		h.logger.Error("logout failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "logout failed", "")
		return
	}
	observability.Audit(h.logger, r, "auth.logout", "username", claims.Username)
	response.JSON(w, r, http.StatusOK, "logout succeeded", nil)
}
