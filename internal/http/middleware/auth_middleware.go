package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/xcloud/console-client/internal/http/response"
	"github.com/xcloud/console-client/internal/security"
	"github.com/xcloud/console-client/internal/service"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*security.Claims, error)
}

func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, "missing authorization header", "")
				return
			}
			claims, err := auth.Authenticate(r.Context(), raw)
			if err != nil {
				msg := "invalid access token"
				if errors.Is(err, service.ErrTokenRevoked) {
					msg = "token revoked"
				}
				response.Error(w, r, http.StatusUnauthorized, msg, "")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}
