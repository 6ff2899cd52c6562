package users

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/gridguard/internal/repository"
)

var lockCmd = &cobra.Command{
	Use:   "lock <username>",
	Short: "Lock a user so that logins fail with AccountLocked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLocked(cmd, args[0], true)
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <username>",
	Short: "Unlock a user and reset its failed login count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLocked(cmd, args[0], false)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Disable a user; unlock does not re-enable it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], true)
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable <username>",
	Short: "Re-enable a disabled user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], false)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List database realm users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(db *bun.DB) error {
			users, err := repository.NewBunUserRepository(db).List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range users {
				state := "active"
				switch {
				case u.DisabledAt != nil:
					state = "disabled"
				case u.IsLocked():
					state = "locked"
				}
				fmt.Fprintf(out, "%s\t%s\tfailures=%d\n", u.Username, state, u.FailedAttempts)
			}
			return nil
		})
	},
}

func setLocked(cmd *cobra.Command, username string, locked bool) error {
	return withDB(cmd.Context(), func(db *bun.DB) error {
		if err := repository.NewBunUserRepository(db).SetLocked(cmd.Context(), username, locked); err != nil {
			return fmt.Errorf("user %q: %w", username, err)
		}
		verb := "unlocked"
		if locked {
			verb = "locked"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", username, verb)
		return nil
	})
}

func setDisabled(cmd *cobra.Command, username string, disabled bool) error {
	return withDB(cmd.Context(), func(db *bun.DB) error {
		if err := repository.NewBunUserRepository(db).SetDisabled(cmd.Context(), username, disabled); err != nil {
			return fmt.Errorf("user %q: %w", username, err)
		}
		verb := "enabled"
		if disabled {
			verb = "disabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", username, verb)
		return nil
	})
}
