package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/gridguard/cmd/cmdutil"
	"github.com/terraconstructs/gridguard/internal/config"
)

func setupQuickstart(t *testing.T) (*cmdutil.SecurityBundle, *bytes.Buffer) {
	t.Helper()

	cfg = &config.Config{
		Realm: config.RealmConfig{Kind: config.RealmINI, Matcher: "auto"},
		Session: config.SessionConfig{
			IdleTimeout:       30 * time.Minute,
			RememberMeTimeout: 14 * 24 * time.Hour,
			MaxSessions:       10,
		},
		Lockout:      config.LockoutConfig{Threshold: 5},
		LoginTimeout: 5 * time.Second,
		Log:          config.LogConfig{Format: "text"},
	}
	var buf bytes.Buffer
	logger = slog.New(slog.NewTextHandler(&buf, nil))

	bundle, err := cmdutil.NewSecurityBundle(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(bundle.Close)
	return bundle, &buf
}

func TestRunQuickstart(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		want     []string
		notWant  []string
	}{
		{
			name:     "lonestarr",
			username: "lonestarr",
			password: "vespa",
			want: []string{
				"retrieved the correct value",
				"user logged in successfully",
				"May the Schwartz be with you!",
				"You may use a lightsaber ring. Use it wisely.",
				"You are permitted to 'drive' the winnebago",
			},
		},
		{
			name:     "darkhelmet",
			username: "darkhelmet",
			password: "ludicrousspeed",
			want: []string{
				"May the Schwartz be with you!",
				"Sorry, you aren't allowed to drive the 'eagle5' winnebago!",
			},
		},
		{
			name:     "guest",
			username: "guest",
			password: "guest",
			want: []string{
				"Hello, mere mortal.",
				"Sorry, lightsaber rings are for schwartz masters only.",
			},
		},
		{
			name:     "unknown user",
			username: "barf",
			password: "mawg",
			want:     []string{"there is no user with that username"},
			notWant:  []string{"user logged in successfully"},
		},
		{
			name:     "wrong password",
			username: "lonestarr",
			password: "druish",
			want:     []string{"password for account was incorrect"},
			notWant:  []string{"user logged in successfully"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, buf := setupQuickstart(t)

			err := runQuickstart(context.Background(), bundle, tt.username, tt.password, true)
			require.NoError(t, err)

			out := buf.String()
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, out, s)
			}
		})
	}
}
