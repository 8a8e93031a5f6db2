package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	configMetricsOnce sync.Once
	configCounter     metric.Int64Counter
)

// recordConfigValidationEvent counts config loads. The meter is resolved
// lazily so a provider installed after Load still gets later events.
func recordConfigValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	configMetricsOnce.Do(func() {
		counter, err := otel.Meter("xcloud-console-client/config").Int64Counter(
			"config.validation.events",
			metric.WithDescription("configuration load attempts by outcome"),
		)
		if err == nil {
			configCounter = counter
		}
	})
	if configCounter == nil {
		return
	}
	configCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

func normalizeConfigProfile(profile string) string {
	v := strings.TrimSpace(strings.ToLower(profile))
	if v == "" {
		return "unknown"
	}
	return v
}

// classifyConfigLoadError buckets a Load failure by the setting family that
// broke, so a dashboard can tell a bad session backend from a bad JWT secret.
// Joined validation errors report the first family found.
func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.TrimSpace(err.Error())
	if strings.HasPrefix(msg, "parse ") {
		return "parse"
	}
	if !strings.HasPrefix(msg, "validate config:") {
		return "load"
	}
	for _, f := range validationFamilies {
		for _, marker := range f.markers {
			if strings.Contains(msg, marker) {
				return f.class
			}
		}
	}
	return "validation"
}

var validationFamilies = []struct {
	class   string
	markers []string
}{
	{class: "session_storage", markers: []string{"XCLOUD_SESSION_", "REDIS_"}},
	{class: "endpoint", markers: []string{"XCLOUD_API_BASE_URL", "XCLOUD_LOGIN_ROUTE", "XCLOUD_REQUEST_TIMEOUT"}},
	{class: "jwt", markers: []string{"JWT "}},
	{class: "mock_api", markers: []string{"MOCKAPI_"}},
	{class: "logging", markers: []string{"LOG_FORMAT"}},
}
