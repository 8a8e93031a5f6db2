package middleware

import (
	"net/http"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/http/response"
)

// RequireRole admits callers whose role includes min in the
// admin > operator > viewer hierarchy.
func RequireRole(min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "missing auth context", "")
				return
			}
			if !domain.Role(claims.Role).Includes(min) {
				response.Error(w, r, http.StatusForbidden, "insufficient permissions", "requires role "+string(min))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
