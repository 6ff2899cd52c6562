package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments for authentication and session telemetry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AuthAttempts   metric.Int64Counter       // Total login attempts
	AuthFailures   metric.Int64Counter       // Failed login attempts, by kind
	AuthDuration   metric.Float64Histogram   // Authentication latency
	SessionCreated metric.Int64Counter       // Sessions created
	SessionExpired metric.Int64Counter       // Sessions evicted after expiry
	ActiveSessions metric.Int64UpDownCounter // Sessions currently in the table
	AccountLockout metric.Int64Counter       // Accounts locked by the lockout policy
}

// NewMetrics creates the instruments on the global MeterProvider, which
// Init replaces when an exporter is configured. Call once at startup.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithProvider(otel.GetMeterProvider())
}

// NewMetricsWithProvider creates the instruments on mp.
func NewMetricsWithProvider(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("gridguard")

	authAttempts, err := meter.Int64Counter(
		"auth.attempt.count",
		metric.WithDescription("Total number of authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	authFailures, err := meter.Int64Counter(
		"auth.failure.count",
		metric.WithDescription("Total number of failed authentication attempts"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	authDuration, err := meter.Float64Histogram(
		"auth.duration",
		metric.WithDescription("Authentication operation duration"),
		metric.WithUnit("ms"),
		// bcrypt dominates: cost 10-12 lands between 50ms and 500ms
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	sessionCreated, err := meter.Int64Counter(
		"session.created.count",
		metric.WithDescription("Total number of sessions created"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	sessionExpired, err := meter.Int64Counter(
		"session.expired.count",
		metric.WithDescription("Total number of sessions evicted after expiry"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	activeSessions, err := meter.Int64UpDownCounter(
		"session.active",
		metric.WithDescription("Number of sessions currently held"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	accountLockout, err := meter.Int64Counter(
		"auth.lockout.count",
		metric.WithDescription("Total number of accounts locked after repeated failures"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		AuthAttempts:   authAttempts,
		AuthFailures:   authFailures,
		AuthDuration:   authDuration,
		SessionCreated: sessionCreated,
		SessionExpired: sessionExpired,
		ActiveSessions: activeSessions,
		AccountLockout: accountLockout,
	}, nil
}

// RecordAuth records one authentication attempt. reason is empty on success.
func (m *Metrics) RecordAuth(ctx context.Context, reason string, durationMs float64) {
	if m == nil {
		return
	}
	success := reason == ""
	attrs := metric.WithAttributes(attribute.Bool(AttrAuthSuccess, success))

	m.AuthAttempts.Add(ctx, 1, attrs)
	m.AuthDuration.Record(ctx, durationMs, attrs)

	if !success {
		m.AuthFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrAuthFailure, reason)))
	}
}

// RecordLockout counts an account locked by the lockout policy.
func (m *Metrics) RecordLockout(ctx context.Context) {
	if m == nil {
		return
	}
	m.AccountLockout.Add(ctx, 1)
}

// SessionStarted records a new session entering the table.
func (m *Metrics) SessionStarted(ctx context.Context, remembered bool) {
	if m == nil {
		return
	}
	m.SessionCreated.Add(ctx, 1, metric.WithAttributes(attribute.Bool(AttrSessionRemembered, remembered)))
	m.ActiveSessions.Add(ctx, 1)
}

// SessionRemoved records a session leaving the table. expired is true when
// removal was caused by timeout rather than logout or capacity eviction.
func (m *Metrics) SessionRemoved(ctx context.Context, expired bool) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
	if expired {
		m.SessionExpired.Add(ctx, 1)
	}
}

// Metric attribute keys
const (
	AttrAuthSuccess       = "auth.success"
	AttrAuthFailure       = "auth.failure"
	AttrSessionRemembered = "session.remembered"
)
