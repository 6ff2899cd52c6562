package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/terraconstructs/gridguard/cmd/cmdutil"
	"github.com/terraconstructs/gridguard/cmd/roles"
	"github.com/terraconstructs/gridguard/cmd/users"
	"github.com/terraconstructs/gridguard/internal/config"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "gridguard",
	Short: "Authentication, session and authorization engine",
	Long: `gridguard authenticates principals against an INI or database realm,
tracks their sessions, and answers role and wildcard permission checks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger = cmdutil.NewLogger(cfg, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (YAML, TOML or JSON)")
	rootCmd.PersistentFlags().String("realm", "", "Realm kind: ini or database (env: GUARD_REALM_KIND)")
	rootCmd.PersistentFlags().String("ini", "", "INI realm file; empty uses the built-in quickstart realm (env: GUARD_REALM_INI_PATH)")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: GUARD_REALM_DATABASE_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: GUARD_DEBUG)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (env: GUARD_LOG_FORMAT)")
	rootCmd.PersistentFlags().String("metrics", "", "Metrics exporter: none or stdout (env: GUARD_TELEMETRY_EXPORTER)")

	for key, flag := range map[string]string{
		"realm.kind":         "realm",
		"realm.ini_path":     "ini",
		"realm.database_url": "db-url",
		"debug":              "debug",
		"log.format":         "log-format",
		"telemetry.exporter": "metrics",
	} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}

	// Add subcommands
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(roles.RolesCmd)
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
