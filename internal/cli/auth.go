package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"techblok-cli/internal/session"
)

func newLoginCmd(app *App) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the backend and persist the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.bootstrap(false)
			if err != nil {
				return err
			}
			defer rt.close()

			if username == "" {
				username, err = promptLine(cmd, "Username: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptLine(cmd, "Password: ")
				if err != nil {
					return err
				}
			}

			ctx, cancel := rt.ctx()
			defer cancel()
			ident, err := rt.sess.Login(ctx, username, password)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ident, app.Pretty)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the persisted token",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.bootstrap(false)
			if err != nil {
				return err
			}
			defer rt.close()
			rt.sess.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.bootstrap(false)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := rt.ctx()
			defer cancel()
			if err := rt.requireSession(ctx); err != nil {
				return err
			}
			ident, _ := rt.sess.Identity()
			return printJSON(cmd.OutOrStdout(), ident, app.Pretty)
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session state and token expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.bootstrap(false)
			if err != nil {
				return err
			}
			defer rt.close()

			out := map[string]any{
				"state":    rt.sess.State().String(),
				"api":      rt.cfg.APIBaseURL,
				"stateDir": rt.cfg.StateDir,
			}
			if info, ok := rt.sess.TokenInfo(); ok {
				out["tokenUsername"] = info.Username
				out["tokenRole"] = info.Role
				if info.HasExpiry {
					out["tokenExpiresAt"] = info.ExpiresAt
				}
			}
			return printJSON(cmd.OutOrStdout(), out, app.Pretty)
		},
	}
}

func newPasswdCmd(app *App) *cobra.Command {
	var current, next string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your own password",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.bootstrap(false)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := rt.ctx()
			defer cancel()
			if err := rt.requireSession(ctx); err != nil {
				return err
			}

			if current == "" {
				current, err = promptLine(cmd, "Current password: ")
				if err != nil {
					return err
				}
			}
			if next == "" {
				next, err = promptLine(cmd, "New password: ")
				if err != nil {
					return err
				}
			}
			if len(next) < session.MinPasswordLen {
				return fmt.Errorf("new password must be at least %d characters", session.MinPasswordLen)
			}

			if err := rt.sess.ChangePassword(ctx, current, next); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password changed")
			return nil
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "Current password (prompted when omitted)")
	cmd.Flags().StringVar(&next, "new", "", "New password (prompted when omitted)")
	return cmd
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	r := bufio.NewReader(os.Stdin)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
