// Package doctor runs the environment checks behind `xcloudctl doctor`:
// API reachability, session storage round trip and the state of the stored
// session.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/http/client"
	"github.com/xcloud/console-client/internal/repository"
)

const probeKey = "doctor_probe"

// SessionView is the read side of the session store the checks need.
type SessionView interface {
	Snapshot() domain.Session
}

type Checks struct {
	Client   *client.Client
	Storage  repository.KeyValueStore
	Session  SessionView
	Attempts int
	Interval time.Duration
	Now      func() time.Time
}

// Run executes every check in order and stops at the first failure. The
// returned details describe each check that passed.
func Run(ctx context.Context, c Checks) ([]string, error) {
	if c.Attempts <= 0 {
		c.Attempts = 5
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	details := []string{}
	status, err := waitForHealth(ctx, c)
	if err != nil {
		return details, err
	}
	details = append(details, "api health: "+status)

	if err := storageRoundTrip(ctx, c.Storage); err != nil {
		return details, err
	}
	details = append(details, "session storage round trip: ok")

	details = append(details, describeSession(c.Session.Snapshot(), c.Now())...)
	return details, nil
}

// waitForHealth polls GET /health on the API origin until it answers 200.
func waitForHealth(ctx context.Context, c Checks) (string, error) {
	target, err := healthURL(c.Client.BaseURL())
	if err != nil {
		return "", err
	}
	var lastErr error
	for attempt := 1; attempt <= c.Attempts; attempt++ {
		var env domain.Envelope
		err := c.Client.DoJSON(ctx, client.Request{Method: http.MethodGet, Path: target, SkipAuthRefresh: true}, &env)
		if err == nil {
			if env.Message == "" {
				return "ok", nil
			}
			return env.Message, nil
		}
		lastErr = err
		if attempt == c.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.Interval):
		}
	}
	return "", fmt.Errorf("api health check failed after %d attempts: %w", c.Attempts, lastErr)
}

func healthURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	return u.ResolveReference(&url.URL{Path: "/health"}).String(), nil
}

func storageRoundTrip(ctx context.Context, storage repository.KeyValueStore) error {
	want := uuid.NewString()
	if err := storage.Set(ctx, probeKey, want); err != nil {
		return fmt.Errorf("session storage write: %w", err)
	}
	got, err := storage.Get(ctx, probeKey)
	if delErr := storage.Delete(ctx, probeKey); delErr != nil && err == nil {
		err = delErr
	}
	if err != nil {
		return fmt.Errorf("session storage read: %w", err)
	}
	if got != want {
		return errors.New("session storage returned a different value than written")
	}
	return nil
}

func describeSession(s domain.Session, now time.Time) []string {
	if !s.Authenticated() {
		if s.RefreshToken != "" {
			return []string{"session: refresh token only, next request will refresh"}
		}
		return []string{"session: not logged in"}
	}
	lines := []string{"session: authenticated"}
	if s.UserInfo != nil {
		lines = append(lines, fmt.Sprintf("user: %s (%s)", s.UserInfo.Username, s.UserInfo.Role))
	}
	switch {
	case s.ExpiresAt.IsZero():
		lines = append(lines, "access token expiry: unknown")
	case s.Expired(now):
		lines = append(lines, "access token expired, next request will refresh")
	default:
		lines = append(lines, "access token expires in "+s.ExpiresAt.Sub(now).Round(time.Second).String())
	}
	return lines
}
