package iam

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/services/session"
	"github.com/terraconstructs/gridguard/internal/telemetry"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	return sums
}

func TestSecurityManager_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := telemetry.NewMetricsWithProvider(provider)
	require.NoError(t, err)

	mock := clock.NewMock()
	sm, err := NewSecurityManager(Config{
		Session:          session.Config{IdleTimeout: 30 * time.Minute},
		LockoutThreshold: 2,
	}, Dependencies{
		Store:   quickstartStore(),
		Matcher: PlainMatcher{},
		Clock:   mock,
		Logger:  discardLogger(),
		Metrics: metrics,
	})
	require.NoError(t, err)
	t.Cleanup(sm.Close)
	ctx := context.Background()

	subject := sm.NewSubject()
	err = subject.Login(ctx, auth.NewUsernamePasswordToken("lonestarr", "wrong", false))
	require.ErrorIs(t, err, auth.ErrIncorrectCredential)
	require.NoError(t, subject.Login(ctx, auth.NewUsernamePasswordToken("lonestarr", "vespa", false)))

	sums := collectSums(t, reader)
	assert.Equal(t, int64(2), sums["auth.attempt.count"])
	assert.Equal(t, int64(1), sums["auth.failure.count"])
	assert.Equal(t, int64(1), sums["session.created.count"])
	assert.Equal(t, int64(1), sums["session.active"])
	assert.Zero(t, sums["auth.lockout.count"])

	// lock darkhelmet, then let lonestarr's session expire
	other := sm.NewSubject()
	for i := 0; i < 2; i++ {
		_ = other.Login(ctx, auth.NewUsernamePasswordToken("darkhelmet", "wrong", false))
	}
	mock.Add(time.Hour)
	assert.False(t, subject.IsAuthenticated())

	sums = collectSums(t, reader)
	assert.Equal(t, int64(4), sums["auth.attempt.count"])
	assert.Equal(t, int64(3), sums["auth.failure.count"])
	assert.Equal(t, int64(1), sums["auth.lockout.count"])
	assert.Equal(t, int64(1), sums["session.expired.count"])
	assert.Equal(t, int64(0), sums["session.active"])
}
