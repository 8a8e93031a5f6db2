package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xcloud/console-client/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "xcloud-console-client"

type AppMetrics struct {
	authLoginCounter      metric.Int64Counter
	authRefreshCounter    metric.Int64Counter
	authLogoutCounter     metric.Int64Counter
	clientRequestCounter  metric.Int64Counter
	sessionRestoreCounter metric.Int64Counter
	navigationCounter     metric.Int64Counter
	storageCounter        metric.Int64Counter
	serverAuthCounter     metric.Int64Counter
	requestDuration       metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	var mp *sdkmetric.MeterProvider
	if !cfg.OTELMetricsEnabled {
		mp = sdkmetric.NewMeterProvider()
		logger.Debug("otel metrics disabled")
	} else {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
		if cfg.OTELExporterOTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", err)
		}
		res, err := newResource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create metric resource: %w", err)
		}
		reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	}
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	setAppMetrics(m)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	if m.authLoginCounter, err = meter.Int64Counter("auth.login.attempts"); err != nil {
		return nil, err
	}
	if m.authRefreshCounter, err = meter.Int64Counter("auth.refresh.attempts"); err != nil {
		return nil, err
	}
	if m.authLogoutCounter, err = meter.Int64Counter("auth.logout.attempts"); err != nil {
		return nil, err
	}
	if m.clientRequestCounter, err = meter.Int64Counter("client.requests"); err != nil {
		return nil, err
	}
	if m.sessionRestoreCounter, err = meter.Int64Counter("session.restore"); err != nil {
		return nil, err
	}
	if m.navigationCounter, err = meter.Int64Counter("navigation.redirects"); err != nil {
		return nil, err
	}
	if m.storageCounter, err = meter.Int64Counter("session.storage.operations"); err != nil {
		return nil, err
	}
	if m.serverAuthCounter, err = meter.Int64Counter("mockapi.auth.events"); err != nil {
		return nil, err
	}
	if m.requestDuration, err = meter.Float64Histogram("client.request.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &m, nil
}

func setAppMetrics(m *AppMetrics) {
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, source, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	))
}

func RecordAuthRefresh(ctx context.Context, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authRefreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthLogout(ctx context.Context, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordClientRequest counts one pipeline call by its terminal state
// (success, replayed, logged_out, error).
func RecordClientRequest(ctx context.Context, method, outcome string, seconds float64) {
	m := currentMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)
	m.clientRequestCounter.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, seconds, attrs)
}

func RecordSessionRestore(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.sessionRestoreCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordNavigation(ctx context.Context, route string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.navigationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}

func RecordStorageOperation(ctx context.Context, backend, op, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.storageCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// RecordServerAuthEvent counts token issuance and rejection on the mock API.
func RecordServerAuthEvent(ctx context.Context, event, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.serverAuthCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}
