package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/xcloud/console-client/internal/api"
	"github.com/xcloud/console-client/internal/config"
	"github.com/xcloud/console-client/internal/http/client"
	"github.com/xcloud/console-client/internal/navigation"
	"github.com/xcloud/console-client/internal/observability"
	"github.com/xcloud/console-client/internal/repository"
	"github.com/xcloud/console-client/internal/service"
)

// CLI holds everything an xcloudctl command needs. Build it through the
// di package.
type CLI struct {
	Config        *config.Config
	Logger        *slog.Logger
	Observability *observability.Runtime
	Storage       repository.KeyValueStore
	Client        *client.Client
	Session       *service.SessionStore
	Users         api.UserAPI
	Raw           api.RawAPI
	Navigator     *navigation.CLINavigator
}

func NewCLI(
	cfg *config.Config,
	logger *slog.Logger,
	runtime *observability.Runtime,
	storage repository.KeyValueStore,
	c *client.Client,
	session *service.SessionStore,
	users api.UserAPI,
	raw api.RawAPI,
	nav *navigation.CLINavigator,
) *CLI {
	return &CLI{
		Config:        cfg,
		Logger:        logger,
		Observability: runtime,
		Storage:       storage,
		Client:        c,
		Session:       session,
		Users:         users,
		Raw:           raw,
		Navigator:     nav,
	}
}

// Start restores the persisted session. A corrupt session is logged by the
// store and leaves it unauthenticated, so only storage failures surface.
func (a *CLI) Start(ctx context.Context) error {
	return a.Session.Restore(ctx)
}

func (a *CLI) Shutdown(ctx context.Context) error {
	return a.Observability.Shutdown(ctx)
}

// MockAPI is the local development backend.
type MockAPI struct {
	Config          *config.Config
	Logger          *slog.Logger
	Server          *http.Server
	Observability   *observability.Runtime
	ShutdownTimeout time.Duration
}

func NewMockAPI(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime) *MockAPI {
	return &MockAPI{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Observability:   runtime,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run listens on Server.Addr and serves until ctx is cancelled.
func (a *MockAPI) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then drains in-flight requests
// and flushes telemetry within ShutdownTimeout.
func (a *MockAPI) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("mock api listening", "addr", ln.Addr().String())
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := a.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	a.Logger.Info("mock api shutting down")
	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := a.Observability.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown observability: %w", err))
	}
	return errors.Join(errs...)
}
