package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetricsWithProvider(provider)
	require.NoError(t, err)
	return m, reader
}

// sumOf adds up every data point of the named int64 sum.
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetrics_Record(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAuth(ctx, "", 12.5)
	m.RecordAuth(ctx, "incorrect_credential", 3)
	m.RecordLockout(ctx)
	m.SessionStarted(ctx, true)
	m.SessionStarted(ctx, false)
	m.SessionRemoved(ctx, true)

	assert.Equal(t, int64(2), sumOf(t, reader, "auth.attempt.count"))
	assert.Equal(t, int64(1), sumOf(t, reader, "auth.failure.count"))
	assert.Equal(t, int64(1), sumOf(t, reader, "auth.lockout.count"))
	assert.Equal(t, int64(2), sumOf(t, reader, "session.created.count"))
	assert.Equal(t, int64(1), sumOf(t, reader, "session.active"))
	assert.Equal(t, int64(1), sumOf(t, reader, "session.expired.count"))
}

func TestNewMetrics_GlobalProvider(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordAuth(context.Background(), "", 1)
	})
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordAuth(ctx, "timeout", 1)
		m.RecordLockout(ctx)
		m.SessionStarted(ctx, false)
		m.SessionRemoved(ctx, false)
	})
}
