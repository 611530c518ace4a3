package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/authd/internal/server/storage/sqlite"
)

func newMigrateCommand() *cobra.Command {
	var db dbFlags

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date and exit",
		Args:  cobra.NoArgs,
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

			version, err := store.SchemaVersion(ctx, sqlite.SystemSchema)
			if err != nil {
				return err
			}
			logger.InfoContext(ctx, "schema is up to date",
				slog.String("path", cfg.Database.DSN()),
				slog.Int("version", version))
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d\n", sqlite.SystemSchema, version)
			return nil
		},
	}

	db.register(cmd)
	return cmd
}
