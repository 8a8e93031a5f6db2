package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if d := rl.Allow("a"); !d.Allowed || d.Remaining != 1 {
		t.Fatalf("first hit: %+v", d)
	}
	if d := rl.Allow("a"); !d.Allowed || d.Remaining != 0 {
		t.Fatalf("second hit: %+v", d)
	}
	d := rl.Allow("a")
	if d.Allowed || d.RetryAfter != time.Minute {
		t.Fatalf("third hit should be denied for a minute: %+v", d)
	}
	if d := rl.Allow("b"); !d.Allowed {
		t.Fatal("keys must be independent")
	}

	now = now.Add(61 * time.Second)
	if d := rl.Allow("a"); !d.Allowed {
		t.Fatalf("window should have slid: %+v", d)
	}
}

func TestRateLimiterMiddlewareReturns429(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	if rr := do(); rr.Code != http.StatusNoContent {
		t.Fatalf("first request: %d", rr.Code)
	}
	rr := do()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" || rr.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("missing rate limit headers: %v", rr.Header())
	}
}
