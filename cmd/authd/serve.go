package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/iudanet/authd/internal/config"
	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/internal/server/metrics"
	"github.com/iudanet/authd/internal/server/middleware"
	"github.com/iudanet/authd/internal/server/routes"
)

func newServeCommand() *cobra.Command {
	var (
		db       dbFlags
		port     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			cfg, err := loadConfig(db.apply, func(c *config.Config) {
				if port != "" {
					c.Server.Port = port
				}
				if logLevel != "" {
					c.Server.LogLevel = logLevel
				}
			})
			if err != nil {
				return err
			}
			logger := cfg.Server.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(logger)

			ln, err := net.Listen("tcp", cfg.Server.Addr())
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
			}
			return runServer(ctx, cfg, logger, ln)
		},
	}

	db.register(cmd)
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	return cmd
}

// runServer serves on ln until ctx is cancelled, then shuts down gracefully.
// The admin user is created before the first request is accepted.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener, opts ...auth.Option) error {
	defer ln.Close()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	svc := auth.New(store, append([]auth.Option{auth.WithLogger(logger)}, opts...)...)
	if _, err := svc.EnsureAdmin(ctx, cfg.Auth.StartupPassword); err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginRateWindow, logger)
	defer limiter.Stop()

	router := routes.NewRouter(routes.Options{
		Logger:       logger,
		Service:      svc,
		Metrics:      metrics.New(),
		LoginLimiter: limiter,
		Version:      Version,
	})

	server := &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", ln.Addr().String()),
			slog.String("database", cfg.Database.DSN()),
			slog.String("version", Version))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
