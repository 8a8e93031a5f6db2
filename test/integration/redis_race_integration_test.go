package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/repository"
	"github.com/xcloud/console-client/internal/service"
)

func TestRedisConcurrent401SingleFlightRefreshesOnce(t *testing.T) {
	redisClient, cleanup := startRedisContainer(t)
	defer cleanup()

	api := newMockAPIServer(t, service.NewRedisTokenDenylist(redisClient, "itest:deny"))
	storage := repository.NewRedisKeyValueStore(redisClient, "itest:session")
	cc := newConsoleClient(api.baseURL, storage, service.SessionStoreOptions{SingleFlight: true})
	ctx := context.Background()

	if _, err := cc.session.Login(ctx, domain.Credentials{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := cc.session.SaveTokens(ctx, domain.TokenData{AccessToken: "expired", RefreshToken: cc.session.RefreshToken()}); err != nil {
		t.Fatalf("save tokens: %v", err)
	}

	const concurrentCalls = 16
	errCh := make(chan error, concurrentCalls)
	var wg sync.WaitGroup
	for i := 0; i < concurrentCalls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cc.users.Profile(ctx); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("profile call failed: %v", err)
	}

	if got := api.refreshes.Load(); got < 1 || got > concurrentCalls {
		t.Fatalf("unexpected refresh count %d", got)
	}
	if !cc.session.IsAuthenticated() || len(cc.nav.Routes()) != 0 {
		t.Fatal("coalesced refresh must keep the session")
	}
	stored, err := storage.Get(ctx, repository.KeyAccessToken)
	if err != nil || stored != cc.session.Token() {
		t.Fatalf("redis session out of sync: %q %v", stored, err)
	}
}

func TestRedisDenylistRevokesAcrossServerInstances(t *testing.T) {
	redisClient, cleanup := startRedisContainer(t)
	defer cleanup()

	denylist := service.NewRedisTokenDenylist(redisClient, "itest:deny")
	first := newMockAPIServer(t, denylist)
	second := newMockAPIServer(t, denylist)
	ctx := context.Background()

	cc := newConsoleClient(first.baseURL, repository.NewInMemoryKeyValueStore(), service.SessionStoreOptions{})
	if _, err := cc.session.Login(ctx, domain.Credentials{Username: "viewer", Password: "viewer123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	token := cc.session.Token()
	if err := cc.session.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	other := newConsoleClient(second.baseURL, repository.NewInMemoryKeyValueStore(), service.SessionStoreOptions{})
	if err := other.session.SaveTokens(ctx, domain.TokenData{AccessToken: token}); err != nil {
		t.Fatalf("save tokens: %v", err)
	}
	if _, err := other.users.Profile(ctx); err == nil {
		t.Fatal("token revoked on one instance must be rejected by another")
	}
}
