package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// GUARD_SESSION_IDLE_TIMEOUT for session.idle_timeout.
const EnvPrefix = "GUARD"

// Realm kinds.
const (
	RealmINI      = "ini"
	RealmDatabase = "database"
)

// Config holds the application configuration
type Config struct {
	// Realm selects and configures the credential store
	Realm RealmConfig `mapstructure:"realm"`

	// Session manager tuning
	Session SessionConfig `mapstructure:"session"`

	// Failed-login lockout
	Lockout LockoutConfig `mapstructure:"lockout"`

	// Upper bound on a single login, applied by the CLI as a context deadline
	LoginTimeout time.Duration `mapstructure:"login_timeout"`

	// Enable debug logging
	Debug bool `mapstructure:"debug"`

	Log LogConfig `mapstructure:"log"`

	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// RealmConfig holds credential store settings.
//
// Two kinds are supported:
//   - "ini": accounts from a Shiro-style INI file (IniPath), or the built-in
//     quickstart realm when IniPath is empty
//   - "database": accounts from the users/roles/casbin_rules tables at
//     DatabaseURL
type RealmConfig struct {
	Kind    string `mapstructure:"kind"`
	IniPath string `mapstructure:"ini_path"`

	// Database connection string (DSN)
	DatabaseURL string `mapstructure:"database_url"`

	// Maximum database connection pool size
	MaxDBConnections int `mapstructure:"max_db_connections"`

	// Credential matcher: auto, bcrypt or plain
	Matcher string `mapstructure:"matcher"`
}

// SessionConfig holds session manager settings.
type SessionConfig struct {
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RememberMeTimeout time.Duration `mapstructure:"remember_me_timeout"`
	MaxSessions       int           `mapstructure:"max_sessions"`

	// Zero disables the background sweeper; expiry is still enforced lazily
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LockoutConfig holds failed-login lockout settings.
type LockoutConfig struct {
	// Consecutive failures before an account locks. Zero disables lockout.
	Threshold int `mapstructure:"threshold"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// text or json
	Format string `mapstructure:"format"`
}

// Metrics exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// TelemetryConfig selects where OpenTelemetry metrics go.
type TelemetryConfig struct {
	// none or stdout
	Exporter string `mapstructure:"exporter"`

	// Export period of the periodic reader
	Interval time.Duration `mapstructure:"interval"`

	ServiceName string `mapstructure:"service_name"`
}

// defaults lists every key. Registering each one is what lets AutomaticEnv
// populate nested fields during Unmarshal.
var defaults = map[string]any{
	"realm.kind":                  RealmINI,
	"realm.ini_path":              "",
	"realm.database_url":          "",
	"realm.max_db_connections":    25,
	"realm.matcher":               "auto",
	"session.idle_timeout":        30 * time.Minute,
	"session.remember_me_timeout": 14 * 24 * time.Hour,
	"session.max_sessions":        10000,
	"session.sweep_interval":      time.Minute,
	"lockout.threshold":           5,
	"login_timeout":               10 * time.Second,
	"debug":                       false,
	"log.format":                  "text",
	"telemetry.exporter":          ExporterNone,
	"telemetry.interval":          30 * time.Second,
	"telemetry.service_name":      "gridguard",
}

// SetDefaults registers defaults on v.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load builds the configuration from the global viper instance: defaults,
// then the config file if one was read, then GUARD_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds the configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	c.Realm.Kind = strings.ToLower(strings.TrimSpace(c.Realm.Kind))
	switch c.Realm.Kind {
	case RealmINI:
	case RealmDatabase:
		if c.Realm.DatabaseURL == "" {
			return fmt.Errorf("realm.database_url (%s_REALM_DATABASE_URL) is required for the database realm", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown realm kind %q (want %s or %s)", c.Realm.Kind, RealmINI, RealmDatabase)
	}

	switch strings.ToLower(c.Realm.Matcher) {
	case "", "auto", "bcrypt", "plain":
	default:
		return fmt.Errorf("unknown credential matcher %q", c.Realm.Matcher)
	}

	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be positive, got %s", c.Session.IdleTimeout)
	}
	if c.Session.RememberMeTimeout < c.Session.IdleTimeout {
		return fmt.Errorf("session.remember_me_timeout (%s) must not be shorter than session.idle_timeout (%s)",
			c.Session.RememberMeTimeout, c.Session.IdleTimeout)
	}
	if c.Lockout.Threshold < 0 {
		return fmt.Errorf("lockout.threshold must not be negative, got %d", c.Lockout.Threshold)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}

	switch c.Telemetry.Exporter {
	case ExporterNone:
	case ExporterStdout:
		if c.Telemetry.Interval <= 0 {
			return fmt.Errorf("telemetry.interval must be positive, got %s", c.Telemetry.Interval)
		}
	default:
		return fmt.Errorf("unknown metrics exporter %q (want %s or %s)", c.Telemetry.Exporter, ExporterNone, ExporterStdout)
	}
	return nil
}
