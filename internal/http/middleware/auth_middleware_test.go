package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xcloud/console-client/internal/security"
	"github.com/xcloud/console-client/internal/service"
)

func newTestTokenService() (*service.TokenService, *security.JWTManager) {
	jwtMgr := security.NewJWTManager(
		"iss",
		"aud",
		"abcdefghijklmnopqrstuvwxyz123456",
		"abcdefghijklmnopqrstuvwxyz654321",
	)
	return service.NewTokenService(jwtMgr, service.NewInMemoryTokenDenylist(), 15*time.Minute, time.Hour), jwtMgr
}

func TestAuthMiddlewareMissingTokenReturnsUnauthorized(t *testing.T) {
	tokens, _ := newTestTokenService()
	h := AuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", rr.Code)
	}
}

func TestAuthMiddlewareValidBearerTokenPasses(t *testing.T) {
	tokens, jwtMgr := newTestTokenService()
	token, _, err := jwtMgr.SignAccessToken(security.Subject{UserID: "42", Role: "viewer"}, 15*time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	var subject string
	h := AuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		subject = claims.Subject
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid token, got %d", rr.Code)
	}
	if subject != "42" {
		t.Fatalf("claims subject = %q", subject)
	}
}

func TestAuthMiddlewareRejectsRevokedToken(t *testing.T) {
	tokens, jwtMgr := newTestTokenService()
	token, claims, err := jwtMgr.SignAccessToken(security.Subject{UserID: "42"}, 15*time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if err := tokens.Revoke(context.Background(), claims); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	h := AuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", rr.Code)
	}
}
