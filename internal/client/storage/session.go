// Package storage - локальное хранилище клиента authctl
package storage

import (
	"context"
	"time"
)

// Storage - все, что нужно командам клиента
type Storage interface {
	SessionStorage
	MetadataStorage
}

// SessionStorage хранит сессии клиента по адресу сервера
type SessionStorage interface {
	// SaveSession stores the session for data.Server, replacing an older one
	SaveSession(ctx context.Context, data *SessionData) error

	// GetSession returns ErrSessionNotFound if there is no session for server
	GetSession(ctx context.Context, server string) (*SessionData, error)

	// DeleteSession removes the session for server (logout)
	DeleteSession(ctx context.Context, server string) error
}

// SessionData - сессия, полученная при login.
// SessionID дает полный доступ к учетной записи, файл создается с правами 0600
type SessionData struct {
	Expires   time.Time `json:"expires"`
	Server    string    `json:"server"`
	Username  string    `json:"username"`
	SessionID string    `json:"session_id"`
	CSRFToken string    `json:"csrf_token"`
}

// Expired reports whether the session is past its expiry at now
func (d *SessionData) Expired(now time.Time) bool {
	return !d.Expires.IsZero() && !now.Before(d.Expires)
}
