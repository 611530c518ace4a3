package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/authd/internal/client/storage"
)

// Logout завершает сессию на сервере и удаляет ее локально
func (c *Cli) Logout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	err := c.withSession(ctx, func(*storage.SessionData) error {
		return c.apiClient.Logout(ctx)
	})
	switch {
	case errors.Is(err, ErrSessionExpired):
		// сервер уже забыл сессию
	case err != nil:
		return fmt.Errorf("logout failed: %w", err)
	default:
		if err := c.store.DeleteSession(ctx, c.apiClient.BaseURL()); err != nil &&
			!errors.Is(err, storage.ErrSessionNotFound) {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
