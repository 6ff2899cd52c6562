package cmdutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/gridguard/internal/config"
	"github.com/terraconstructs/gridguard/internal/db/bunx"
	"github.com/terraconstructs/gridguard/internal/realm"
	"github.com/terraconstructs/gridguard/internal/services/iam"
	"github.com/terraconstructs/gridguard/internal/services/session"
	"github.com/terraconstructs/gridguard/internal/telemetry"
)

// SecurityBundle bundles the security manager with the database connection
// backing it (nil for the INI realm) so callers can release both at once.
type SecurityBundle struct {
	Manager *iam.SecurityManager
	DB      *bun.DB

	shutdownTelemetry func(context.Context) error
	logger            *slog.Logger
}

// Close stops the security manager, flushes metrics and releases the
// database connection.
func (b *SecurityBundle) Close() {
	if b == nil {
		return
	}
	if b.Manager != nil {
		b.Manager.Close()
	}
	if b.shutdownTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := b.shutdownTelemetry(ctx); err != nil && b.logger != nil {
			b.logger.Warn("telemetry shutdown failed", "error", err)
		}
		cancel()
	}
	if b.DB != nil {
		_ = bunx.Close(b.DB)
	}
}

// OpenDatabase connects to the configured database realm.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	if cfg.Realm.DatabaseURL == "" {
		return nil, fmt.Errorf("no database configured (set realm.database_url or %s_REALM_DATABASE_URL)", config.EnvPrefix)
	}
	db, err := bunx.NewDB(ctx, cfg.Realm.DatabaseURL, cfg.Realm.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewSecurityBundle centralizes SecurityManager construction for CLI commands.
// It builds the configured realm and matcher and wires metrics. Exported
// metrics are written to os.Stderr.
func NewSecurityBundle(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*SecurityBundle, error) {
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, os.Stderr, logger)
	if err != nil {
		return nil, err
	}
	bundle := &SecurityBundle{shutdownTelemetry: shutdown, logger: logger}

	var store iam.CredentialStore
	switch cfg.Realm.Kind {
	case config.RealmDatabase:
		db, err := OpenDatabase(ctx, cfg)
		if err != nil {
			bundle.Close()
			return nil, err
		}
		bundle.DB = db
		store = realm.NewDatabaseRealmFromDB(db, logger)
	default:
		r, err := loadIniRealm(cfg, logger)
		if err != nil {
			bundle.Close()
			return nil, err
		}
		logger.Debug("ini realm ready", "principals", r.Principals())
		store = r
	}

	matcher, err := iam.NewMatcher(cfg.Realm.Matcher)
	if err != nil {
		bundle.Close()
		return nil, err
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		bundle.Close()
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	sm, err := iam.NewSecurityManager(
		iam.Config{
			Session: session.Config{
				IdleTimeout:       cfg.Session.IdleTimeout,
				RememberMeTimeout: cfg.Session.RememberMeTimeout,
				MaxSessions:       cfg.Session.MaxSessions,
			},
			LockoutThreshold: cfg.Lockout.Threshold,
			SweepInterval:    cfg.Session.SweepInterval,
		},
		iam.Dependencies{
			Store:   store,
			Matcher: matcher,
			Logger:  logger,
			Metrics: metrics,
		},
	)
	if err != nil {
		bundle.Close()
		return nil, fmt.Errorf("failed to create security manager: %w", err)
	}
	bundle.Manager = sm
	sm.Start(ctx)

	return bundle, nil
}

func loadIniRealm(cfg *config.Config, logger *slog.Logger) (*realm.IniRealm, error) {
	if cfg.Realm.IniPath == "" {
		logger.Debug("no realm file configured, using built-in quickstart realm")
		return realm.ParseIniRealm(realm.QuickstartINI, logger)
	}
	return realm.LoadIniRealm(cfg.Realm.IniPath, logger)
}
