// Package cli - команды клиента authctl
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iudanet/authd/internal/client/api"
	"github.com/iudanet/authd/internal/client/storage"
	"github.com/iudanet/authd/internal/iocli"
)

var (
	// ErrNotAuthenticated возвращается, если для сервера нет сохраненной сессии
	ErrNotAuthenticated = errors.New("not authenticated. Please run 'authctl login' first")

	// ErrSessionExpired - сессия истекла или сервер ее больше не принимает.
	// Локальная копия к этому моменту уже удалена
	ErrSessionExpired = errors.New("session expired. Please run 'authctl login' again")
)

type Cli struct {
	io        iocli.IO
	apiClient *api.Client
	store     storage.Storage
	now       func() time.Time
}

func New(io iocli.IO, apiClient *api.Client, store storage.Storage) *Cli {
	return &Cli{
		io:        io,
		apiClient: apiClient,
		store:     store,
		now:       time.Now,
	}
}

// withSession выполняет fn от имени сохраненной сессии и сохраняет CSRF
// токен, если сервер его сменил. Сессию, которую сервер больше не принимает,
// удаляет локально
func (c *Cli) withSession(ctx context.Context, fn func(data *storage.SessionData) error) error {
	server := c.apiClient.BaseURL()

	data, err := c.store.GetSession(ctx, server)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	if data.Expired(c.now()) {
		if err := c.store.DeleteSession(ctx, server); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return ErrSessionExpired
	}

	c.apiClient.SetSession(data.SessionID, data.CSRFToken)
	fnErr := fn(data)

	if isSessionGone(fnErr) {
		if err := c.store.DeleteSession(ctx, server); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return ErrSessionExpired
	}

	if sessionID, csrf := c.apiClient.Session(); sessionID == data.SessionID && csrf != data.CSRFToken {
		data.CSRFToken = csrf
		if err := c.store.SaveSession(ctx, data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
	}

	return fnErr
}

// isSessionGone отличает отсутствие сессии от 401 за нехватку прав
func isSessionGone(err error) bool {
	var apiErr *api.Error
	return errors.As(err, &apiErr) &&
		apiErr.Status == http.StatusUnauthorized &&
		apiErr.Message == http.StatusText(http.StatusUnauthorized)
}

// readNewPassword читает пароль дважды
func (c *Cli) readNewPassword(prompt string) (string, error) {
	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
