package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/authd/internal/client/storage"
	"github.com/iudanet/authd/pkg/api"
)

// ChangePassword меняет пароль текущего пользователя
func (c *Cli) ChangePassword(ctx context.Context) error {
	return c.withSession(ctx, func(data *storage.SessionData) error {
		oldPassword, err := c.io.ReadPassword("Current password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		newPassword, err := c.readNewPassword("New password: ")
		if err != nil {
			return err
		}

		err = c.apiClient.SetPassword(ctx, data.Username, api.SetPasswordRequest{
			NewPassword: newPassword,
			OldPassword: oldPassword,
		})
		if err != nil {
			return err
		}

		c.io.Println("✓ Password changed")
		return nil
	})
}

// SetUserPassword задает пароль другому пользователю. Пользователь должен
// сменить его в течение суток
func (c *Cli) SetUserPassword(ctx context.Context, username string) error {
	return c.withSession(ctx, func(*storage.SessionData) error {
		password, err := c.readNewPassword("Temporary password: ")
		if err != nil {
			return err
		}

		if err := c.apiClient.SetPassword(ctx, username, api.SetPasswordRequest{NewPassword: password}); err != nil {
			return err
		}

		c.io.Printf("✓ Password set for %s, it must be changed within a day\n", username)
		return nil
	})
}

// TestPassword проверяет пароль по текущей политике сервера
func (c *Cli) TestPassword(ctx context.Context) error {
	return c.withSession(ctx, func(*storage.SessionData) error {
		password, err := c.io.ReadPassword("Password to test: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		if err := c.apiClient.TestPassword(ctx, password); err != nil {
			return err
		}

		c.io.Println("✓ Password meets the policy")
		return nil
	})
}
