package roles

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/gridguard/cmd/cmdutil"
	"github.com/terraconstructs/gridguard/internal/config"
	"github.com/terraconstructs/gridguard/internal/db/bunx"
)

// RolesCmd is the parent command for role and permission management
var RolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage database realm roles and permission grants",
}

var grantCmd = &cobra.Command{
	Use:   "grant <role> <permission>...",
	Short: "Grant permissions to a role, creating the role if needed",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(a *cmdutil.Admin) error {
			if err := a.Grant(cmd.Context(), args[0], args[1:]...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", strings.Join(args[1:], ", "), args[0])
			return nil
		})
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <role> <permission>...",
	Short: "Revoke permissions from a role",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(a *cmdutil.Admin) error {
			if err := a.Revoke(cmd.Context(), args[0], args[1:]...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s from %s\n", strings.Join(args[1:], ", "), args[0])
			return nil
		})
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <username> <role>...",
	Short: "Assign roles to a user",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(a *cmdutil.Admin) error {
			for _, role := range args[1:] {
				if err := a.AssignRole(cmd.Context(), args[0], role); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "assigned %s to %s\n", role, args[0])
			}
			return nil
		})
	},
}

var unassignCmd = &cobra.Command{
	Use:   "unassign <username> <role>...",
	Short: "Remove roles from a user",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(a *cmdutil.Admin) error {
			for _, role := range args[1:] {
				if err := a.UnassignRole(cmd.Context(), args[0], role); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", role, args[0])
			}
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List roles and their permissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(a *cmdutil.Admin) error {
			roles, err := a.Roles.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range roles {
				perms, err := a.Permissions(r.Name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", r.Name, strings.Join(perms, ","))
			}
			return nil
		})
	},
}

func withAdmin(cmd *cobra.Command, fn func(*cmdutil.Admin) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := cmdutil.OpenDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer bunx.Close(db)

	admin, err := cmdutil.NewAdmin(db)
	if err != nil {
		return err
	}
	return fn(admin)
}

func init() {
	RolesCmd.AddCommand(grantCmd)
	RolesCmd.AddCommand(revokeCmd)
	RolesCmd.AddCommand(assignCmd)
	RolesCmd.AddCommand(unassignCmd)
	RolesCmd.AddCommand(listCmd)
}
