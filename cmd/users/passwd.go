package users

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/gridguard/cmd/cmdutil"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Replace a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.ErrOrStderr(), "Enter new password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}

		return withDB(cmd.Context(), func(db *bun.DB) error {
			admin, err := cmdutil.NewAdmin(db)
			if err != nil {
				return err
			}
			if err := admin.SetPassword(cmd.Context(), args[0], password); err != nil {
				return fmt.Errorf("user %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
			return nil
		})
	},
}
