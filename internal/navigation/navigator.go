// Package navigation carries the "go to route" side effect the request
// pipeline triggers when a session cannot be recovered.
package navigation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xcloud/console-client/internal/observability"
)

const RouteLogin = "/login"

type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// CLINavigator has no screen to switch, so a redirect to the login route
// becomes a logged instruction plus a flag the CLI checks before exiting.
type CLINavigator struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending string
}

func NewCLINavigator(logger *slog.Logger) *CLINavigator {
	return &CLINavigator{logger: logger}
}

func (n *CLINavigator) Navigate(ctx context.Context, route string) error {
	observability.RecordNavigation(ctx, route)
	n.mu.Lock()
	n.pending = route
	n.mu.Unlock()
	if route == RouteLogin {
		n.logger.Warn("session expired, run `xcloudctl login` to sign in again", "route", route)
		return nil
	}
	n.logger.Info("navigation requested", "route", route)
	return nil
}

// Pending returns the last requested route, or "" if none.
func (n *CLINavigator) Pending() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending
}

// Recorder collects navigations; tests use it to assert redirects.
type Recorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *Recorder) Navigate(_ context.Context, route string) error {
	r.mu.Lock()
	r.routes = append(r.routes, route)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.routes))
	copy(out, r.routes)
	return out
}
