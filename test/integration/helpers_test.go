package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xcloud/console-client/internal/api"
	"github.com/xcloud/console-client/internal/http/client"
	"github.com/xcloud/console-client/internal/http/handler"
	"github.com/xcloud/console-client/internal/http/router"
	"github.com/xcloud/console-client/internal/navigation"
	"github.com/xcloud/console-client/internal/repository"
	"github.com/xcloud/console-client/internal/security"
	"github.com/xcloud/console-client/internal/service"
)

type mockAPI struct {
	baseURL   string
	refreshes atomic.Int64
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMockAPIServer starts the mock API with the given denylist and counts
// refresh calls.
func newMockAPIServer(t *testing.T, denylist service.TokenDenylist) *mockAPI {
	t.Helper()
	logger := discardLogger()
	accounts, err := repository.NewInMemoryAccountRepository(repository.DefaultSeedAccounts)
	if err != nil {
		t.Fatalf("seed accounts: %v", err)
	}
	jwtMgr := security.NewJWTManager("itest", "itest", "integration-access-secret-0123456789", "integration-refresh-secret-0123456789")
	tokens := service.NewTokenService(jwtMgr, denylist, time.Hour, 24*time.Hour)
	auth := service.NewAuthService(accounts, tokens, logger)
	h := router.NewRouter(router.Dependencies{
		AuthHandler:   handler.NewAuthHandler(auth, logger),
		UserHandler:   handler.NewUserHandler(auth, logger),
		Authenticator: auth,
		Logger:        logger,
	})

	m := &mockAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api"+api.PathRefresh {
			m.refreshes.Add(1)
		}
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	m.baseURL = srv.URL + "/api"
	return m
}

type consoleClient struct {
	session *service.SessionStore
	nav     *navigation.Recorder
	users   api.UserAPI
}

func newConsoleClient(baseURL string, storage repository.KeyValueStore, opts service.SessionStoreOptions) *consoleClient {
	logger := discardLogger()
	c := client.New(client.Options{BaseURL: baseURL, Timeout: 10 * time.Second}, logger)
	session := service.NewSessionStore(storage, api.NewHTTPAuthAPI(c), logger, opts)
	nav := &navigation.Recorder{}
	return &consoleClient{
		session: session,
		nav:     nav,
		users:   api.NewHTTPUserAPI(api.NewAuthed(c, session, nav)),
	}
}

func startRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container integration test in short mode")
	}
	if !dockerAvailable() {
		t.Skip("docker is not available; skipping redis container integration test")
	}

	hostPort := reserveLocalPort(t)
	containerName := "xcloud-redis-it-" + strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + strconv.Itoa(rand.Intn(1000))

	runCmd := exec.Command("docker", "run", "-d", "--rm",
		"--name", containerName,
		"-p", fmt.Sprintf("127.0.0.1:%d:6379", hostPort),
		"redis:7-alpine",
		"redis-server", "--save", "", "--appendonly", "no",
	)
	out, err := runCmd.CombinedOutput()
	if err != nil {
		t.Skipf("unable to start redis container: %v output=%s", err, strings.TrimSpace(string(out)))
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("127.0.0.1:%d", hostPort)})
	ctx := context.Background()
	deadline := time.Now().Add(20 * time.Second)
	for {
		if time.Now().After(deadline) {
			_ = client.Close()
			_ = exec.Command("docker", "rm", "-f", containerName).Run()
			t.Fatalf("timed out waiting for redis container %s to become ready", containerName)
		}
		if err := client.Ping(ctx).Err(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	cleanup := func() {
		_ = client.Close()
		_ = exec.Command("docker", "rm", "-f", containerName).Run()
	}
	return client, cleanup
}

func dockerAvailable() bool {
	cmd := exec.Command("docker", "version", "--format", "{{.Server.Version}}")
	return cmd.Run() == nil
}

func reserveLocalPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve local port: %v", err)
	}
	defer func() { _ = l.Close() }()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("unexpected addr type %T", l.Addr())
	}
	return addr.Port
}
