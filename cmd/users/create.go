package users

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/gridguard/cmd/cmdutil"
)

var (
	usernameFlag string
	passwordFlag string
	rolesInput   []string
	stdinFlag    bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a database realm user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if usernameFlag == "" {
			return fmt.Errorf("--username flag is required")
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		return withDB(cmd.Context(), func(db *bun.DB) error {
			admin, err := cmdutil.NewAdmin(db)
			if err != nil {
				return err
			}
			user, err := admin.CreateUser(cmd.Context(), usernameFlag, password, rolesInput)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User ID:  %s\n", user.ID)
			fmt.Fprintf(out, "Username: %s\n", user.Username)
			if len(rolesInput) > 0 {
				fmt.Fprintf(out, "Roles:    %s\n", strings.Join(rolesInput, ", "))
			}
			return nil
		})
	},
}
