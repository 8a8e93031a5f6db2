package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/http/client"
	"github.com/xcloud/console-client/internal/repository"
)

type staticSession domain.Session

func (s staticSession) Snapshot() domain.Session { return domain.Session(s) }

func TestRunAllChecksPass(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"message":"ok"}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	storage := repository.NewInMemoryKeyValueStore()
	details, err := Run(context.Background(), Checks{
		Client:   client.New(client.Options{BaseURL: srv.URL + "/api"}, nil),
		Storage:  storage,
		Session:  staticSession{AccessToken: "a", ExpiresAt: now.Add(time.Hour), UserInfo: &domain.UserRecord{Username: "admin", Role: domain.RoleAdmin}},
		Attempts: 3,
		Interval: time.Millisecond,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	joined := strings.Join(details, "\n")
	for _, want := range []string{"api health: ok", "round trip: ok", "user: admin (admin)", "expires in 1h0m0s"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}
	if storage.Len() != 0 {
		t.Fatal("probe key must be removed")
	}
}

func TestRunFailsWhenAPIUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Run(context.Background(), Checks{
		Client:   client.New(client.Options{BaseURL: srv.URL}, nil),
		Storage:  repository.NewInMemoryKeyValueStore(),
		Session:  staticSession{},
		Attempts: 2,
		Interval: time.Millisecond,
	})
	if err == nil || !strings.Contains(err.Error(), "after 2 attempts") {
		t.Fatalf("expected health failure, got %v", err)
	}
}

func TestDescribeSession(t *testing.T) {
	now := time.Now()
	if got := describeSession(domain.Session{}, now); got[0] != "session: not logged in" {
		t.Fatalf("unexpected %v", got)
	}
	if got := describeSession(domain.Session{RefreshToken: "r"}, now); !strings.Contains(got[0], "refresh token only") {
		t.Fatalf("unexpected %v", got)
	}
	got := describeSession(domain.Session{AccessToken: "a", ExpiresAt: now.Add(-time.Minute)}, now)
	if !strings.Contains(got[len(got)-1], "expired") {
		t.Fatalf("unexpected %v", got)
	}
}
