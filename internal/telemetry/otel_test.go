package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/terraconstructs/gridguard/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInit_Disabled(t *testing.T) {
	for _, exporter := range []string{"", config.ExporterNone} {
		shutdown, err := Init(context.Background(), config.TelemetryConfig{Exporter: exporter}, io.Discard, discardLogger())
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	}
}

func TestInit_Stdout(t *testing.T) {
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), config.TelemetryConfig{
		Exporter:    config.ExporterStdout,
		Interval:    time.Hour,
		ServiceName: "gridguard-test",
	}, &buf, discardLogger())
	require.NoError(t, err)

	m, err := NewMetrics()
	require.NoError(t, err)
	m.RecordAuth(context.Background(), "account_locked", 2)

	// shutdown flushes the final collection
	require.NoError(t, shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "auth.attempt.count")
	assert.Contains(t, out, "account_locked")
	assert.Contains(t, out, "gridguard-test")
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), config.TelemetryConfig{Exporter: "statsd"}, io.Discard, discardLogger())
	assert.Error(t, err)
}
