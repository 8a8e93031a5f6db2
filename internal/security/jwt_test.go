package security

import (
	"errors"
	"testing"
	"time"
)

func newTestJWTManager() *JWTManager {
	return NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456", "abcdefghijklmnopqrstuvwxyz654321")
}

func TestSignAndParseAccessToken(t *testing.T) {
	m := newTestJWTManager()
	raw, claims, err := m.SignAccessToken(Subject{UserID: "u-1", Username: "admin", Role: "admin"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parsed, err := m.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Subject != "u-1" || parsed.Username != "admin" || parsed.Role != "admin" || parsed.ID != claims.ID {
		t.Fatalf("unexpected claims %+v", parsed)
	}
}

func TestParseRejectsWrongTokenType(t *testing.T) {
	m := newTestJWTManager()
	refresh, _, err := m.SignRefreshToken(Subject{UserID: "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}
	if _, err := m.ParseAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for refresh used as access, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := newTestJWTManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := m.SignAccessToken(Subject{UserID: "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	m.now = time.Now
	if _, err := m.ParseAccessToken(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	m := newTestJWTManager()
	raw, claims, err := m.SignAccessToken(Subject{UserID: "u-1"}, 10*time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if got := TokenExpiry(raw); !got.Equal(claims.ExpiresAt.Time) {
		t.Fatalf("expiry mismatch: %v vs %v", got, claims.ExpiresAt.Time)
	}
	if !TokenExpiry("mock_access_token_123").IsZero() {
		t.Fatal("opaque token must have zero expiry")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := CheckPassword(hash, "admin123"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := CheckPassword(hash, "nope"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
