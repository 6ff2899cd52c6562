package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/gridguard/cmd/cmdutil"
	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/services/session"
)

var (
	qsUsername string
	qsPassword string
	qsRemember bool
)

var quickstartCmd = &cobra.Command{
	Use:   "quickstart",
	Short: "Run the login, session and permission walkthrough",
	Long: `Logs a user in against the configured realm, stores and reads back a
session attribute, checks the schwartz role and the lightsaber and winnebago
permissions, then logs out. Each outcome is logged.

With no realm configured the built-in quickstart realm is used, so

  gridguard quickstart
  gridguard quickstart --username darkhelmet --password ludicrousspeed

work out of the box.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bundle, err := cmdutil.NewSecurityBundle(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer bundle.Close()

		return runQuickstart(ctx, bundle, qsUsername, qsPassword, qsRemember)
	},
}

func runQuickstart(ctx context.Context, bundle *cmdutil.SecurityBundle, username, password string, remember bool) error {
	currentUser := bundle.Manager.NewSubject()

	// sessions work before login
	sess, err := currentUser.Session(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	if err := sess.SetAttribute(ctx, "someKey", "aValue"); err != nil {
		return fmt.Errorf("failed to set session attribute: %w", err)
	}
	value, ok, err := session.Get[string](ctx, sess, "someKey")
	if err != nil {
		return fmt.Errorf("failed to read session attribute: %w", err)
	}
	if ok && value == "aValue" {
		logger.Info("retrieved the correct value", "key", "someKey", "value", value)
	}

	if !currentUser.IsAuthenticated() {
		token := auth.NewUsernamePasswordToken(username, password, remember)
		defer token.Clear()

		loginCtx := ctx
		if cfg.LoginTimeout > 0 {
			var cancel context.CancelFunc
			loginCtx, cancel = context.WithTimeout(ctx, cfg.LoginTimeout)
			defer cancel()
		}

		if err := currentUser.Login(loginCtx, token); err != nil {
			switch {
			case errors.Is(err, auth.ErrUnknownPrincipal):
				logger.Info("there is no user with that username", "username", username)
			case errors.Is(err, auth.ErrIncorrectCredential):
				logger.Info("password for account was incorrect", "username", username)
			case errors.Is(err, auth.ErrAccountLocked):
				logger.Info("the account is locked, contact your administrator to unlock it", "username", username)
			default:
				return fmt.Errorf("login failed: %w", err)
			}
			return nil
		}
	}

	logger.Info("user logged in successfully",
		"principal", currentUser.Principal(),
		"remembered", currentUser.IsRemembered(),
	)

	if currentUser.HasRole("schwartz") {
		logger.Info("May the Schwartz be with you!")
	} else {
		logger.Info("Hello, mere mortal.")
	}

	if currentUser.IsPermitted("lightsaber:wield") {
		logger.Info("You may use a lightsaber ring. Use it wisely.")
	} else {
		logger.Info("Sorry, lightsaber rings are for schwartz masters only.")
	}

	if currentUser.IsPermitted("winnebago:drive:eagle5") {
		logger.Info("You are permitted to 'drive' the winnebago with license plate (id) 'eagle5'. Here are the keys - have fun!")
	} else {
		logger.Info("Sorry, you aren't allowed to drive the 'eagle5' winnebago!")
	}

	if err := currentUser.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	logger.Info("logged out", "principal", username)
	return nil
}

func init() {
	quickstartCmd.Flags().StringVar(&qsUsername, "username", "lonestarr", "Principal to log in as")
	quickstartCmd.Flags().StringVar(&qsPassword, "password", "vespa", "Credential for the principal")
	quickstartCmd.Flags().BoolVar(&qsRemember, "remember", true, "Request a remember-me session")

	rootCmd.AddCommand(quickstartCmd)
}
