package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/gridguard/cmd/cmdutil"
	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/db/bunx"
	"github.com/terraconstructs/gridguard/internal/services/iam"
)

var checkCmd = &cobra.Command{
	Use:   "check <username> <permission>...",
	Short: "Evaluate permissions for a user against the database policy",
	Long: `Evaluates each permission for the user through the casbin policy stored in
casbin_rules, without authenticating. Prints one line per permission and
exits non-zero when any permission is denied.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		username, perms := args[0], args[1:]

		db, err := cmdutil.OpenDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer bunx.Close(db)

		enforcer, err := auth.InitEnforcer(db)
		if err != nil {
			return fmt.Errorf("failed to initialize casbin enforcer: %w", err)
		}
		policy, err := iam.NewPolicyAuthorizer(enforcer, logger)
		if err != nil {
			return err
		}

		roles, err := policy.RolesFor(username)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "roles\t%s\n", strings.Join(roles, ","))

		var denied []string
		for _, perm := range perms {
			allowed, err := policy.Enforce(username, perm)
			if err != nil {
				return err
			}
			verdict := "permitted"
			if !allowed {
				verdict = "denied"
				denied = append(denied, perm)
			}
			fmt.Fprintf(out, "%s\t%s\n", perm, verdict)
		}

		if len(denied) > 0 {
			return auth.NewError(auth.KindPermissionDenied, "check", username,
				fmt.Errorf("denied: %s", strings.Join(denied, ", ")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
