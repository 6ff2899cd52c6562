package users

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/gridguard/cmd/cmdutil"
	"github.com/terraconstructs/gridguard/internal/config"
	"github.com/terraconstructs/gridguard/internal/db/bunx"
)

// UsersCmd is the parent command for database realm user management
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage database realm users",
	Long:  `Commands for creating, locking, disabling and re-keying users in the database realm.`,
}

// withDB loads configuration and opens the realm database for fn.
func withDB(ctx context.Context, fn func(db *bun.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := cmdutil.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer bunx.Close(db)
	return fn(db)
}

func init() {
	createCmd.Flags().StringVar(&usernameFlag, "username", "", "Username of the user (required)")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().StringSliceVar(&rolesInput, "role", []string{}, "Role(s) to assign to the user")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(lockCmd)
	UsersCmd.AddCommand(unlockCmd)
	UsersCmd.AddCommand(listCmd)

	passwdCmd.Flags().StringVar(&passwordFlag, "password", "", "New password (use --stdin to avoid shell history)")
	passwdCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")
	UsersCmd.AddCommand(passwdCmd)
	UsersCmd.AddCommand(disableCmd)
	UsersCmd.AddCommand(enableCmd)
}
