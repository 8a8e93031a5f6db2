package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/security"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

func newTestTokenService(denylist TokenDenylist) *TokenService {
	mgr := security.NewJWTManager("xcloud", "xcloud-console", testAccessSecret, testRefreshSecret)
	return NewTokenService(mgr, denylist, time.Hour, 24*time.Hour)
}

func testUser() domain.UserRecord {
	return domain.UserRecord{ID: "user-1", Username: "admin", Role: domain.RoleAdmin, IsActive: true}
}

func testFetcher(user domain.UserRecord) func(context.Context, string) (*domain.UserRecord, error) {
	return func(_ context.Context, id string) (*domain.UserRecord, error) {
		if id != user.ID {
			return nil, ErrUserNotFound
		}
		u := user
		return &u, nil
	}
}

func TestTokenIssueProducesBearerPair(t *testing.T) {
	svc := newTestTokenService(NewInMemoryTokenDenylist())
	pair, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.TokenType != domain.TokenTypeBearer || pair.ExpiresIn != 3600 {
		t.Fatalf("unexpected pair metadata %+v", pair)
	}
	claims, err := svc.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := svc.Authenticate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("refresh token must not authenticate, got %v", err)
	}
}

func TestTokenRotateDenylistsPreviousRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(NewInMemoryTokenDenylist())
	user := testUser()

	first, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, rotatedFor, err := svc.Rotate(ctx, first.RefreshToken, testFetcher(user))
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotatedFor.ID != user.ID || second.RefreshToken == first.RefreshToken {
		t.Fatal("expected a fresh pair for the same user")
	}

	if _, _, err := svc.Rotate(ctx, first.RefreshToken, testFetcher(user)); !errors.Is(err, ErrRefreshTokenReuseDetected) {
		t.Fatalf("expected reuse detection, got %v", err)
	}
	if _, _, err := svc.Rotate(ctx, second.RefreshToken, testFetcher(user)); err != nil {
		t.Fatalf("rotating the new token must succeed: %v", err)
	}
}

func TestTokenRotateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(NewInMemoryTokenDenylist())
	user := testUser()
	pair, _ := svc.Issue(user)

	if _, _, err := svc.Rotate(ctx, "garbage", testFetcher(user)); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("garbage: %v", err)
	}
	if _, _, err := svc.Rotate(ctx, pair.AccessToken, testFetcher(user)); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("access token as refresh: %v", err)
	}
	inactive := user
	inactive.IsActive = false
	if _, _, err := svc.Rotate(ctx, pair.RefreshToken, testFetcher(inactive)); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("inactive user: %v", err)
	}
}

func TestTokenRevokeBlocksAccessToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(NewInMemoryTokenDenylist())
	pair, _ := svc.Issue(testUser())
	claims, err := svc.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := svc.Revoke(ctx, claims); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestTokenServiceWithRedisDenylist(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	svc := newTestTokenService(NewRedisTokenDenylist(client, "deny_test"))
	user := testUser()
	pair, _ := svc.Issue(user)
	if _, _, err := svc.Rotate(ctx, pair.RefreshToken, testFetcher(user)); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, _, err := svc.Rotate(ctx, pair.RefreshToken, testFetcher(user)); !errors.Is(err, ErrRefreshTokenReuseDetected) {
		t.Fatalf("expected reuse detection through redis, got %v", err)
	}
}
