package cli

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/authd/internal/client/storage"
)

// Status показывает сессию, сохраненную для сервера, и проверяет ее на сервере
func (c *Cli) Status(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Printf("Server: %s\n", c.apiClient.BaseURL())
	c.io.Println()

	err := c.withSession(ctx, func(data *storage.SessionData) error {
		session, err := c.apiClient.CurrentSession(ctx)
		if err != nil {
			return err
		}

		c.io.Println("Status: Authenticated")
		c.io.Printf("Username: %s\n", session.Username)
		c.io.Printf("Logged in: %s from %s\n", formatTime(session.CreatedDate), session.IPAddress)
		c.io.Printf("Session expires: %s\n", formatTime(session.Expires))
		c.io.Printf("Time remaining: %s\n", session.Expires.Sub(c.now()).Round(time.Second))
		return nil
	})

	switch {
	case errors.Is(err, ErrNotAuthenticated):
		c.io.Println("Status: Not authenticated")
	case errors.Is(err, ErrSessionExpired):
		c.io.Println("Status: Session expired")
	default:
		return err
	}

	c.io.Println()
	c.io.Println("Run 'authctl login' to authenticate.")
	return nil
}
