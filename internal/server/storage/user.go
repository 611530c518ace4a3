package storage

import (
	"context"

	"github.com/iudanet/authd/internal/models"
)

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username already exists
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves user by username
	// Returns ErrUserNotFound if user doesn't exist
	GetUser(ctx context.Context, username string) (*models.User, error)

	// ListUsers returns every user ordered by username
	ListUsers(ctx context.Context) ([]*models.User, error)

	// CountUsers returns the number of users
	CountUsers(ctx context.Context) (int, error)

	// UpdateUser writes admin, start_date, end_date and the audit fields of
	// user and increments its version, only if the stored version is
	// expectedVersion. user.Version is set to the new version.
	// Returns ErrVersionConflict if no row matched
	UpdateUser(ctx context.Context, user *models.User, expectedVersion int) error
}

// PasswordStorage defines interface for password persistence
type PasswordStorage interface {
	// CreatePassword inserts the first password of a user
	CreatePassword(ctx context.Context, password *models.Password) error

	// GetPassword retrieves the current password of a user
	// Returns ErrPasswordNotFound if there is none
	GetPassword(ctx context.Context, username string) (*models.Password, error)

	// GetLogin retrieves a user and its current password in one query
	// Returns ErrUserNotFound if either is missing
	GetLogin(ctx context.Context, username string) (*models.User, *models.Password, error)

	// UpdatePassword overwrites the hash, hash version, expiration, session
	// and update audit fields, setting version to expectedVersion+1, only if
	// the stored version is expectedVersion.
	// Returns ErrVersionConflict if no row matched
	UpdatePassword(ctx context.Context, password *models.Password, expectedVersion int) error

	// AddPasswordHistory archives a previous password
	AddPasswordHistory(ctx context.Context, entry *models.PasswordHistory) error

	// GetPasswordHistory returns up to limit archived passwords, newest first
	GetPasswordHistory(ctx context.Context, username string, limit int) ([]*models.PasswordHistory, error)
}

// Store is everything the auth service needs from persistence
type Store interface {
	UserStorage
	PasswordStorage
	SessionStorage
	SettingStorage

	// WithTx runs fn in a transaction. Calls made through the context passed
	// to fn are part of it, nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Ping checks the database is reachable
	Ping(ctx context.Context) error
}
