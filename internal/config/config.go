package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	SessionBackendMemory   = "memory"
	SessionBackendFile     = "file"
	SessionBackendSQLite   = "sqlite"
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

const minJWTSecretLen = 32

type Config struct {
	Profile string

	APIBaseURL          string
	RequestTimeout      time.Duration
	LoginRoute          string
	UseFixtures         bool
	FixtureLatency      time.Duration
	RefreshSingleFlight bool

	SessionBackend string
	SessionFile    string
	SessionDSN     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisPrefix    string

	LogLevel  string
	LogFormat string

	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELEnvironment           string
	OTELMetricsExportInterval time.Duration

	MockAPIAddr      string
	JWTIssuer        string
	JWTAudience      string
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	DenylistBackend  string
	AuthRateLimitRPM int
	ShutdownTimeout  time.Duration
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg, err := load()
	profile := getEnv("APP_ENV", "dev")
	if err != nil {
		recordConfigValidationEvent(context.Background(), profile, "error", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), cfg.Profile, "success", "none")
	return cfg, nil
}

func load() (*Config, error) {
	cfg := &Config{
		Profile:                  getEnv("APP_ENV", "dev"),
		APIBaseURL:               strings.TrimRight(getEnv("XCLOUD_API_BASE_URL", "http://localhost:8080/api"), "/"),
		LoginRoute:               getEnv("XCLOUD_LOGIN_ROUTE", "/login"),
		SessionBackend:           strings.ToLower(getEnv("XCLOUD_SESSION_BACKEND", SessionBackendFile)),
		SessionFile:              getEnv("XCLOUD_SESSION_FILE", defaultSessionFile()),
		SessionDSN:               getEnv("XCLOUD_SESSION_DSN", ""),
		RedisAddr:                getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:            getEnv("REDIS_PASSWORD", ""),
		RedisPrefix:              getEnv("XCLOUD_REDIS_PREFIX", "xcloud:session"),
		LogLevel:                 strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:                strings.ToLower(getEnv("LOG_FORMAT", "text")),
		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "xcloudctl"),
		MockAPIAddr:              getEnv("MOCKAPI_ADDR", ":8080"),
		JWTIssuer:                getEnv("JWT_ISSUER", "xcloud"),
		JWTAudience:              getEnv("JWT_AUDIENCE", "xcloud-console"),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", "xcloud-dev-access-secret-change-me-0001"),
		JWTRefreshSecret:         getEnv("JWT_REFRESH_SECRET", "xcloud-dev-refresh-secret-change-me-0001"),
		DenylistBackend:          strings.ToLower(getEnv("MOCKAPI_DENYLIST_BACKEND", SessionBackendMemory)),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	cfg.OTELEnvironment = getEnv("OTEL_ENVIRONMENT", cfg.Profile)

	var err error
	if cfg.RequestTimeout, err = getDuration("XCLOUD_REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FixtureLatency, err = getDuration("XCLOUD_FIXTURE_LATENCY", 0); err != nil {
		return nil, err
	}
	if cfg.UseFixtures, err = getBool("XCLOUD_USE_FIXTURES", false); err != nil {
		return nil, err
	}
	if cfg.RefreshSingleFlight, err = getBool("XCLOUD_REFRESH_SINGLE_FLIGHT", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsEnabled, err = getBool("OTEL_METRICS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELTracingEnabled, err = getBool("OTEL_TRACING_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELLogsEnabled, err = getBool("OTEL_LOGS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELExporterOTLPInsecure, err = getBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = getDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimitRPM, err = getInt("MOCKAPI_AUTH_RATE_LIMIT_RPM", 120); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("MOCKAPI_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.JWTAccessTTL, err = getDuration("JWT_ACCESS_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = getDuration("JWT_REFRESH_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Load calls it; tests building a
// Config by hand may call it directly.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("XCLOUD_API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("XCLOUD_REQUEST_TIMEOUT must be positive"))
	}
	if !strings.HasPrefix(c.LoginRoute, "/") {
		errs = append(errs, fmt.Errorf("XCLOUD_LOGIN_ROUTE must start with /, got %q", c.LoginRoute))
	}
	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	case SessionBackendFile:
		if strings.TrimSpace(c.SessionFile) == "" {
			errs = append(errs, errors.New("XCLOUD_SESSION_FILE is required for the file backend"))
		}
	case SessionBackendSQLite, SessionBackendPostgres:
		if strings.TrimSpace(c.SessionDSN) == "" {
			errs = append(errs, fmt.Errorf("XCLOUD_SESSION_DSN is required for the %s backend", c.SessionBackend))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported XCLOUD_SESSION_BACKEND %q", c.SessionBackend))
	}
	switch c.DenylistBackend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unsupported MOCKAPI_DENYLIST_BACKEND %q", c.DenylistBackend))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat))
	}
	if len(c.JWTAccessSecret) < minJWTSecretLen || len(c.JWTRefreshSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT secrets must be at least %d characters", minJWTSecretLen))
	}
	if c.AuthRateLimitRPM < 0 {
		errs = append(errs, errors.New("MOCKAPI_AUTH_RATE_LIMIT_RPM must not be negative"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("MOCKAPI_SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		errs = append(errs, errors.New("JWT TTLs must be positive"))
	}
	return errors.Join(errs...)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", ".xcloud-session.json")
	}
	return filepath.Join(dir, "xcloud", "session.json")
}

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func getBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
