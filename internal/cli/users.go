package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"techblok-cli/internal/api"
	"techblok-cli/internal/listctl"
	"techblok-cli/internal/model"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts (admin)",
	}
	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersCreateCmd(app))
	cmd.AddCommand(newUsersUpdateCmd(app))
	cmd.AddCommand(newUsersRmCmd(app))
	cmd.AddCommand(newUsersSetPasswordCmd(app))
	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	var (
		search   string
		page     int
		pageSize int
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users, filtered and paginated like the dashboard table",
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

			if pageSize < 1 {
				pageSize = rt.cfg.UsersPageSize
			}
			ctl := listctl.New(pageSize, model.User.SearchFields)
			if err := ctl.Load(ctx, func(ctx context.Context) ([]model.User, error) {
				return rt.client.ListUsers(ctx)
			}); err != nil {
				return err
			}
			ctl.SetSearchTerm(search)
			ctl.SetPage(page)

			if all {
				return printJSON(cmd.OutOrStdout(), ctl.Filtered(), app.Pretty)
			}
			first, last, total := ctl.Range()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"users": ctl.VisibleSlice(),
				"page":  ctl.Page(),
				"pages": ctl.PageCount(),
				"shown": fmt.Sprintf("%d-%d of %d", first, last, total),
			}, app.Pretty)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by username, full name or role")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Rows per page (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "Print every matching user, unpaginated")
	return cmd
}

func newUsersCreateCmd(app *App) *cobra.Command {
	var (
		username, fullName, password, role string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
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

			r, ok := model.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q (admin|user|guest|worker)", role)
			}
			user, err := rt.sess.CreateUser(ctx, api.CreateUserInput{
				Username: username,
				FullName: fullName,
				Password: password,
				Role:     r,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user, app.Pretty)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Login name")
	cmd.Flags().StringVar(&fullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringVar(&role, "role", "user", "Role (admin|user|guest|worker)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("full-name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUsersUpdateCmd(app *App) *cobra.Command {
	var (
		username, fullName, role string
	)
	cmd := &cobra.Command{
		Use:   "update <uid>",
		Short: "Update a user's profile fields",
		Args:  cobra.ExactArgs(1),
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

			var in api.UpdateUserInput
			if cmd.Flags().Changed("username") {
				in.Username = &username
			}
			if cmd.Flags().Changed("full-name") {
				in.FullName = &fullName
			}
			if cmd.Flags().Changed("role") {
				r, ok := model.ParseRole(role)
				if !ok {
					return fmt.Errorf("unknown role %q (admin|user|guest|worker)", role)
				}
				in.Role = &r
			}
			user, err := rt.sess.UpdateUser(ctx, args[0], in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user, app.Pretty)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "New login name")
	cmd.Flags().StringVar(&fullName, "full-name", "", "New full name")
	cmd.Flags().StringVar(&role, "role", "", "New role")
	return cmd
}

func newUsersRmCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <uid>",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete without --yes")
			}
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
			if err := rt.sess.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func newUsersSetPasswordCmd(app *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "set-password <uid>",
		Short: "Set a user's password",
		Args:  cobra.ExactArgs(1),
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
			if password == "" {
				password, err = promptLine(cmd, "New password: ")
				if err != nil {
					return err
				}
			}
			if err := rt.sess.SetUserPassword(ctx, args[0], password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password set")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "New password (prompted when omitted)")
	return cmd
}
