package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/iocli"
	"github.com/iudanet/authd/internal/server/auth"
)

func newResetPasswordCommand() *cobra.Command {
	var db dbFlags

	cmd := &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Set a temporary password for a user and log out all of their sessions",
		Long: "Set a temporary password for a user and log out all of their sessions.\n" +
			"The password is read from the terminal and must be changed within a day.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			cfg, err := loadConfig(db.apply)
			if err != nil {
				return err
			}
			logger := cfg.Server.NewLogger(cmd.ErrOrStderr())

			store, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := auth.New(store, auth.WithLogger(logger))
			return resetPassword(ctx, iocli.New(cmd.InOrStdin(), cmd.OutOrStdout()), svc, args[0])
		},
	}

	db.register(cmd)
	return cmd
}

func resetPassword(ctx context.Context, io iocli.IO, svc *auth.Service, username string) error {
	password, err := io.ReadPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := io.ReadPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	if err := svc.ResetPassword(ctx, username, password); err != nil {
		// сообщения Failure предназначены пользователю
		if f, ok := fail.As(err); ok {
			return errors.New(f.Message)
		}
		return err
	}

	io.Printf("Password for %s has been reset, it must be changed within a day\n", username)
	return nil
}
