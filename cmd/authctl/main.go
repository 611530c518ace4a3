package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iudanet/authd/internal/client/api"
	"github.com/iudanet/authd/internal/client/cli"
	"github.com/iudanet/authd/internal/client/storage/boltdb"
	"github.com/iudanet/authd/internal/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const defaultServer = "http://localhost:8080"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app - глобальные флаги. Локальная база открывается на время одной команды
type app struct {
	server string
	dbPath string
}

// run открывает локальную базу, выполняет fn и закрывает базу
func (a *app) run(fn func(ctx context.Context, c *cli.Cli, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		store, err := boltdb.New(ctx, a.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close database: %w", closeErr)
			}
		}()

		// без --server используем сервер последнего login
		server := a.server
		if !cmd.Flags().Changed("server") {
			saved, err := store.GetServer(ctx)
			if err != nil {
				return err
			}
			if saved != "" {
				server = saved
			}
		}

		io := iocli.New(cmd.InOrStdin(), cmd.OutOrStdout())
		return fn(ctx, cli.New(io, api.NewClient(server), store), args)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Command line client for authd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&a.server, "server", defaultServer, "Server URL (default: server of the last login)")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "authctl.db", "Path to local session database")

	cmd.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newStatusCommand(a),
		newPasswdCommand(a),
		newUsersCommand(a),
		newSessionsCommand(a),
		newSettingsCommand(a),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "authctl\n")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
			return nil
		},
	}
}
