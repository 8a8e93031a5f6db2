package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/xcloud/console-client/internal/http/response"
)

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
	ResetAt    time.Time
}

// RateLimiter is a per-key sliding window limiter kept in process memory.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	hits    map[string][]time.Time
	cleanup time.Time
	keyFunc func(r *http.Request) string
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		hits:    make(map[string][]time.Time),
		keyFunc: clientIPKey,
		now:     time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) Decision {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.cleanup) {
		for k, hits := range rl.hits {
			if len(hits) == 0 || now.Sub(hits[len(hits)-1]) > rl.window {
				delete(rl.hits, k)
			}
		}
		rl.cleanup = now.Add(rl.window)
	}

	cutoff := now.Add(-rl.window)
	hits := rl.hits[key]
	pruned := hits[:0]
	for _, hit := range hits {
		if hit.After(cutoff) {
			pruned = append(pruned, hit)
		}
	}

	if len(pruned) >= rl.limit {
		rl.hits[key] = pruned
		retry := pruned[0].Add(rl.window).Sub(now)
		if retry <= 0 {
			retry = time.Second
		}
		return Decision{Allowed: false, RetryAfter: retry, ResetAt: now.Add(retry)}
	}
	pruned = append(pruned, now)
	rl.hits[key] = pruned
	return Decision{
		Allowed:   true,
		Remaining: rl.limit - len(pruned),
		ResetAt:   pruned[0].Add(rl.window),
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := rl.Allow(rl.keyFunc(r))
			h := w.Header()
			h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
			h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
			h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", d.ResetAt.Unix()))
			if !d.Allowed {
				h.Set("Retry-After", retryAfterHeader(d.RetryAfter))
				slog.Debug("rate limit exceeded", "path", r.URL.Path, "retry_after", d.RetryAfter)
				response.Error(w, r, http.StatusTooManyRequests, "too many requests", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}
