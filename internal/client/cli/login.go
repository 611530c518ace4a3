package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/authd/internal/client/storage"
	"github.com/iudanet/authd/pkg/api"
)

// Login входит по паролю и сохраняет сессию для сервера.
// Пустой username запрашивается интерактивно
func (c *Cli) Login(ctx context.Context, username string, rememberMe bool) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	if username == "" {
		var err error
		username, err = c.io.ReadInput("Username: ")
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	// старая сессия не должна попасть в запрос
	c.apiClient.SetSession("", "")

	resp, err := c.apiClient.Login(ctx, api.LoginRequest{
		Username:   username,
		Password:   password,
		RememberMe: rememberMe,
	})
	if err != nil {
		return err
	}

	server := c.apiClient.BaseURL()
	data := &storage.SessionData{
		Server:    server,
		Username:  resp.Username,
		SessionID: resp.SessionID,
		CSRFToken: resp.CSRFToken,
		Expires:   resp.Expires,
	}
	if err := c.store.SaveSession(ctx, data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := c.store.SaveServer(ctx, server); err != nil {
		return fmt.Errorf("failed to save server: %w", err)
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", resp.Username)
	c.io.Printf("Session expires: %s\n", formatTime(resp.Expires))
	c.io.Printf("Time remaining: %s\n", resp.Expires.Sub(c.now()).Round(time.Second))

	return nil
}
