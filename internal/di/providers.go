package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/xcloud/console-client/internal/api"
	"github.com/xcloud/console-client/internal/config"
	"github.com/xcloud/console-client/internal/http/client"
	"github.com/xcloud/console-client/internal/http/handler"
	"github.com/xcloud/console-client/internal/http/router"
	"github.com/xcloud/console-client/internal/observability"
	"github.com/xcloud/console-client/internal/repository"
	"github.com/xcloud/console-client/internal/security"
	"github.com/xcloud/console-client/internal/service"
)

const sessionNamespace = "default"

func provideConfig() (*config.Config, error) {
	return config.Load()
}

// provideLogProvider's cleanup flushes the OTLP log exporter when a later
// provider fails. Shutting the provider down again from Runtime is a no-op.
func provideLogProvider(ctx context.Context, cfg *config.Config) (*sdklog.LoggerProvider, func(), error) {
	lp, err := observability.InitLogs(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if lp == nil {
			return
		}
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = lp.Shutdown(shutdownCtx)
	}
	return lp, cleanup, nil
}

func provideLogger(cfg *config.Config, lp *sdklog.LoggerProvider) *slog.Logger {
	logger := observability.NewLogger(cfg, os.Stderr, lp)
	slog.SetDefault(logger)
	return logger
}

func provideRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*observability.Runtime, error) {
	return observability.InitRuntime(ctx, cfg, logger, lp)
}

func provideRedisClient(ctx context.Context, cfg *config.Config) (redis.UniversalClient, func(), error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

// provideKeyValueStore opens only the backend the config selects.
func provideKeyValueStore(ctx context.Context, cfg *config.Config) (repository.KeyValueStore, func(), error) {
	noop := func() {}
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return repository.NewInMemoryKeyValueStore(), noop, nil
	case config.SessionBackendFile:
		return repository.NewFileKeyValueStore(cfg.SessionFile), noop, nil
	case config.SessionBackendSQLite, config.SessionBackendPostgres:
		db, err := repository.OpenSessionDB(cfg.SessionBackend, cfg.SessionDSN)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewGormKeyValueStore(db, sessionNamespace), cleanup, nil
	case config.SessionBackendRedis:
		rdb, cleanup, err := provideRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisKeyValueStore(rdb, cfg.RedisPrefix), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend %q", cfg.SessionBackend)
	}
}

// provideClient routes every request through the fixture transport when
// fixtures are enabled, so fixture calls share the refresh pipeline.
func provideClient(cfg *config.Config, logger *slog.Logger, fx *api.Fixtures) *client.Client {
	opts := client.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.RequestTimeout,
		LoginRoute: cfg.LoginRoute,
		Tracing:    cfg.OTELTracingEnabled,
	}
	if fx != nil {
		opts.Transport = fx
	}
	return client.New(opts, logger)
}

// provideFixtures returns nil unless fixtures are enabled.
func provideFixtures(cfg *config.Config, logger *slog.Logger) (*api.Fixtures, error) {
	if !cfg.UseFixtures {
		return nil, nil
	}
	return api.NewFixtures(cfg.FixtureLatency, logger)
}

func provideAuthClient(a api.AuthAPI) service.AuthClient {
	return a
}

func provideSessionStore(cfg *config.Config, storage repository.KeyValueStore, auth service.AuthClient, logger *slog.Logger) *service.SessionStore {
	return service.NewSessionStore(storage, auth, logger, service.SessionStoreOptions{SingleFlight: cfg.RefreshSingleFlight})
}

func provideAccountRepository() (repository.AccountRepository, error) {
	return repository.NewInMemoryAccountRepository(repository.DefaultSeedAccounts)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
}

func provideTokenDenylist(ctx context.Context, cfg *config.Config) (service.TokenDenylist, func(), error) {
	if cfg.DenylistBackend != config.SessionBackendRedis {
		return service.NewInMemoryTokenDenylist(), func() {}, nil
	}
	rdb, cleanup, err := provideRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return service.NewRedisTokenDenylist(rdb, ""), cleanup, nil
}

func provideTokenService(cfg *config.Config, jwtMgr *security.JWTManager, denylist service.TokenDenylist) *service.TokenService {
	return service.NewTokenService(jwtMgr, denylist, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
}

func provideRouter(cfg *config.Config, logger *slog.Logger, auth *service.AuthService, authHandler *handler.AuthHandler, userHandler *handler.UserHandler) http.Handler {
	return router.NewRouter(router.Dependencies{
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		Authenticator:    auth,
		Logger:           logger,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		EnableOTelHTTP:   cfg.OTELTracingEnabled,
	})
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.MockAPIAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
