package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/authd/internal/config"
	"github.com/iudanet/authd/internal/server/storage/sqlite"
)

// dbFlags - флаги, переопределяющие DATA_DIR и DB_PATH
type dbFlags struct {
	dataDir string
	dbPath  string
}

func (f *dbFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Directory for the database file (overrides DATA_DIR)")
	cmd.Flags().StringVar(&f.dbPath, "db-path", "", "Database path, :memory: allowed (overrides DB_PATH)")
}

func (f *dbFlags) apply(cfg *config.Config) {
	if f.dataDir != "" {
		cfg.Database.DataDir = f.dataDir
	}
	if f.dbPath != "" {
		cfg.Database.Path = f.dbPath
	}
}

// loadConfig загружает конфигурацию и применяет флаги
func loadConfig(apply ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, fn := range apply {
		fn(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStorage открывает базу и применяет миграции
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlite.Storage, error) {
	store, err := sqlite.New(ctx, cfg.Database.DSN(), sqlite.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
