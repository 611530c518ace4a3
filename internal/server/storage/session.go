package storage

import (
	"context"
	"time"

	"github.com/iudanet/authd/internal/models"
)

// SessionStorage defines interface for session persistence
type SessionStorage interface {
	// CreateSession stores a new session
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves session by id regardless of its state
	// Returns ErrSessionNotFound if session doesn't exist
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// GetUserSessions retrieves all sessions of a user, newest first
	// Returns empty slice if no sessions found
	GetUserSessions(ctx context.Context, username string) ([]*models.Session, error)

	// InvalidateSession sets valid=false for one session
	// Returns ErrSessionNotFound if session doesn't exist
	InvalidateSession(ctx context.Context, id string) error

	// InvalidateUserSessions sets valid=false for every valid session of
	// username that has not expired at now, except exceptID
	// Returns number of invalidated sessions
	InvalidateUserSessions(ctx context.Context, username, exceptID string, now time.Time) (int64, error)

	// UpdateSessionCSRF replaces the CSRF token of a session
	UpdateSessionCSRF(ctx context.Context, id, token string, date time.Time) error
}

// SettingStorage defines interface for setting persistence.
// A setting without a row uses its compiled-in default.
type SettingStorage interface {
	// GetSetting returns the stored value
	// Returns ErrSettingNotFound if the setting has no row
	GetSetting(ctx context.Context, id string) (string, error)

	// PutSetting replaces the stored value
	PutSetting(ctx context.Context, setting *models.Setting) error

	// DeleteSetting removes the stored value, it is not an error if there is none
	DeleteSetting(ctx context.Context, id string) error
}
