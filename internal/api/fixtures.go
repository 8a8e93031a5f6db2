package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/xcloud/console-client/internal/http/handler"
	"github.com/xcloud/console-client/internal/http/router"
	"github.com/xcloud/console-client/internal/repository"
	"github.com/xcloud/console-client/internal/security"
	"github.com/xcloud/console-client/internal/service"
)

const (
	fixtureIssuer        = "xcloud-fixtures"
	fixtureAudience      = "xcloud-console"
	fixtureAccessSecret  = "xcloud-fixture-access-secret-not-for-prod"
	fixtureRefreshSecret = "xcloud-fixture-refresh-secret-not-for-prod"
	fixtureAccessTTL     = 24 * time.Hour
	fixtureRefreshTTL    = 7 * 24 * time.Hour
)

// Fixtures is an http.RoundTripper that serves the mock API router
// in-process from seeded accounts, for offline development. Requests still
// go through the full client pipeline. Tokens are real JWTs signed with
// fixture-only secrets, so they stay valid across processes.
type Fixtures struct {
	handler http.Handler
	latency time.Duration
}

var _ http.RoundTripper = (*Fixtures)(nil)

func NewFixtures(latency time.Duration, logger *slog.Logger) (*Fixtures, error) {
	accounts, err := repository.NewInMemoryAccountRepository(repository.DefaultSeedAccounts)
	if err != nil {
		return nil, err
	}
	jwtMgr := security.NewJWTManager(fixtureIssuer, fixtureAudience, fixtureAccessSecret, fixtureRefreshSecret)
	tokens := service.NewTokenService(jwtMgr, service.NewInMemoryTokenDenylist(), fixtureAccessTTL, fixtureRefreshTTL)
	auth := service.NewAuthService(accounts, tokens, logger)
	return &Fixtures{
		handler: router.NewRouter(router.Dependencies{
			AuthHandler:   handler.NewAuthHandler(auth, logger),
			UserHandler:   handler.NewUserHandler(auth, logger),
			Authenticator: auth,
		}),
		latency: latency,
	}, nil
}

// RoundTrip ignores the host and serves the request against the fixture
// router. Everything from "/v1/" onward is routed under "/api", so any base
// URL path prefix works.
func (f *Fixtures) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		defer req.Body.Close()
	}
	if err := f.wait(req.Context()); err != nil {
		return nil, err
	}

	in := req.Clone(req.Context())
	in.URL.Path = fixturePath(req.URL.Path)
	in.URL.RawPath = ""
	in.RequestURI = in.URL.RequestURI()
	if in.Body == nil {
		in.Body = http.NoBody
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, in)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// wait simulates network latency.
func (f *Fixtures) wait(ctx context.Context) error {
	if f.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(f.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func fixturePath(p string) string {
	if i := strings.Index(p, "/v1/"); i >= 0 {
		return "/api" + p[i:]
	}
	if strings.HasSuffix(p, "/v1") {
		return "/api/v1"
	}
	return p
}
