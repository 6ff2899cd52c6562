package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/terraconstructs/gridguard/internal/config"
)

// Init installs the global MeterProvider selected by cfg.Exporter.
// With no exporter configured the no-op provider stays in place and the
// returned shutdown does nothing.
//
// Returns:
//   - shutdown: flushes pending measurements and stops the provider
//   - error: initialization error (only if an exporter is configured)
func Init(ctx context.Context, cfg config.TelemetryConfig, w io.Writer, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Exporter == "" || cfg.Exporter == config.ExporterNone {
		logger.Debug("metrics export disabled")
		return func(context.Context) error { return nil }, nil
	}
	if cfg.Exporter != config.ExporterStdout {
		return nil, fmt.Errorf("unknown metrics exporter %q", cfg.Exporter)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTEL resource: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
	}

	opts := []sdkmetric.PeriodicReaderOption{}
	if cfg.Interval > 0 {
		opts = append(opts, sdkmetric.WithInterval(cfg.Interval))
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, opts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	logger.Debug("metrics export enabled", "exporter", cfg.Exporter, "interval", cfg.Interval)

	return func(ctx context.Context) error {
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
		return nil
	}, nil
}

// newResource identifies the service on every exported measurement.
func newResource(ctx context.Context, cfg config.TelemetryConfig) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "gridguard"
	}
	return resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(name)),
	)
}
