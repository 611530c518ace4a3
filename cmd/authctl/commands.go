package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iudanet/authd/internal/client/cli"
)

func newLoginCommand(a *app) *cobra.Command {
	var (
		username   string
		rememberMe bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to server",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *cli.Cli, _ []string) error {
			return c.Login(ctx, username, rememberMe)
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted if empty)")
	cmd.Flags().BoolVar(&rememberMe, "remember", false, "Keep the session for session.expirationDays instead of a day")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from server",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *cli.Cli, _ []string) error {
			return c.Logout(ctx)
		}),
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *cli.Cli, _ []string) error {
			return c.Status(ctx)
		}),
	}
}

func newPasswdCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwd [username]",
		Short: "Change your password, or set another user's password as admin",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, c *cli.Cli, args []string) error {
			if len(args) == 1 {
				return c.SetUserPassword(ctx, args[0])
			}
			return c.ChangePassword(ctx)
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Check a password against the server policy",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *cli.Cli, _ []string) error {
			return c.TestPassword(ctx)
		}),
	})
	return cmd
}

func newUsersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all users (admin)",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *cli.Cli, _ []string) error {
			return c.ListUsers(ctx)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [username]",
		Short: "Show a user, yourself by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, c *cli.Cli, args []string) error {
			username := ""
			if len(args) == 1 {
				username = args[0]
			}
			return c.ShowUser(ctx, username)
		}),
	})

	var admin bool
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user with a temporary password (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *cli.Cli, args []string) error {
			return c.AddUser(ctx, args[0], admin)
		}),
	}
	add.Flags().BoolVar(&admin, "admin", false, "Give the user admin access")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "grant-admin <username>",
		Short: "Give a user admin access (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *cli.Cli, args []string) error {
			return c.SetAdmin(ctx, args[0], true)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke-admin <username>",
		Short: "Remove admin access from a user (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *cli.Cli, args []string) error {
			return c.SetAdmin(ctx, args[0], false)
		}),
	})

	return cmd
}

func newSessionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions [username]",
		Short: "Show session history, yours by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, c *cli.Cli, args []string) error {
			username := ""
			if len(args) == 1 {
				username = args[0]
			}
			return c.Sessions(ctx, username)
		}),
	}
}

func newSettingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View and change server settings (admin)",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *cli.Cli, _ []string) error {
			return c.ListSettings(ctx)
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id> <value>",
		Short: "Set a setting to a whole number or true/false",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, c *cli.Cli, args []string) error {
			return c.SetSetting(ctx, args[0], args[1])
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset <id>",
		Short: "Reset a setting to its default",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *cli.Cli, args []string) error {
			return c.ResetSetting(ctx, args[0])
		}),
	})

	return cmd
}
