package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xcloud/console-client/internal/apierror"
	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/navigation"
	"github.com/xcloud/console-client/internal/repository"
	"github.com/xcloud/console-client/internal/service"
)

// TestSessionLifecycleAcrossProcesses plays the CLI flow: each step builds a
// fresh client over the same SQLite session store, the way separate
// xcloudctl invocations would.
func TestSessionLifecycleAcrossProcesses(t *testing.T) {
	api := newMockAPIServer(t, service.NewInMemoryTokenDenylist())
	db, err := repository.OpenSessionDB("sqlite", filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("open session db: %v", err)
	}
	storage := repository.NewGormKeyValueStore(db, "itest")
	ctx := context.Background()

	first := newConsoleClient(api.baseURL, storage, service.SessionStoreOptions{})
	if ok, err := first.session.Login(ctx, domain.Credentials{Username: "operator", Password: "operator123"}); !ok || err != nil {
		t.Fatalf("login failed: ok=%v err=%v", ok, err)
	}
	if _, err := first.session.FetchProfile(ctx, first.users); err != nil {
		t.Fatalf("fetch profile: %v", err)
	}

	second := newConsoleClient(api.baseURL, storage, service.SessionStoreOptions{})
	if err := second.session.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !second.session.IsAuthenticated() || second.session.Role() != domain.RoleOperator {
		t.Fatalf("restored session mismatch: %+v", second.session.Snapshot())
	}
	before := second.session.RefreshToken()
	if err := second.session.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.session.RefreshToken() == before {
		t.Fatal("expected refresh token rotation")
	}

	// The first process still holds the rotated-out refresh token.
	if err := first.session.SaveTokens(ctx, domain.TokenData{AccessToken: "stale", RefreshToken: before}); err != nil {
		t.Fatalf("save stale tokens: %v", err)
	}
	if _, err := first.users.Profile(ctx); !apierror.IsKind(err, apierror.KindAuth) {
		t.Fatalf("reused refresh token must log out, got %v", err)
	}
	if routes := first.nav.Routes(); len(routes) != 1 || routes[0] != navigation.RouteLogin {
		t.Fatalf("expected login redirect, got %v", routes)
	}

	third := newConsoleClient(api.baseURL, storage, service.SessionStoreOptions{})
	if err := third.session.Restore(ctx); err != nil {
		t.Fatalf("restore after logout: %v", err)
	}
	if third.session.IsAuthenticated() {
		t.Fatal("session storage must be empty after forced logout")
	}
}
