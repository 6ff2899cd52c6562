package cmdutil

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Realm: config.RealmConfig{Kind: config.RealmINI, Matcher: "auto"},
		Session: config.SessionConfig{
			IdleTimeout:       30 * time.Minute,
			RememberMeTimeout: 14 * 24 * time.Hour,
			MaxSessions:       100,
		},
		Lockout: config.LockoutConfig{Threshold: 5},
		Log:     config.LogConfig{Format: "text"},
	}
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig()
	cfg.Log.Format = "json"

	var buf bytes.Buffer
	logger := NewLogger(cfg, &buf)
	logger.Debug("hidden")
	logger.Info("shown", "user", "lonestarr")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "lonestarr", entry["user"])

	cfg.Debug = true
	buf.Reset()
	NewLogger(cfg, &buf).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewSecurityBundle_BuiltinRealm(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()

	bundle, err := NewSecurityBundle(context.Background(), cfg, NewLogger(cfg, &buf))
	require.NoError(t, err)
	defer bundle.Close()
	assert.Nil(t, bundle.DB)

	subject := bundle.Manager.NewSubject()
	require.NoError(t, subject.Login(context.Background(), auth.NewUsernamePasswordToken("lonestarr", "vespa", false)))
	assert.True(t, subject.HasRole("schwartz"))
}

func TestNewSecurityBundle_Errors(t *testing.T) {
	var buf bytes.Buffer

	cfg := testConfig()
	cfg.Realm.IniPath = "/does/not/exist.ini"
	_, err := NewSecurityBundle(context.Background(), cfg, NewLogger(cfg, &buf))
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Realm.Matcher = "md5"
	_, err = NewSecurityBundle(context.Background(), cfg, NewLogger(cfg, &buf))
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Realm.Kind = config.RealmDatabase
	_, err = NewSecurityBundle(context.Background(), cfg, NewLogger(cfg, &buf))
	assert.Error(t, err, "database realm without a DSN")

	cfg = testConfig()
	cfg.Telemetry.Exporter = "statsd"
	_, err = NewSecurityBundle(context.Background(), cfg, NewLogger(cfg, &buf))
	assert.Error(t, err)
}
