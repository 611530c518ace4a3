package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/storage"
)

const userColumns = `username, admin, start_date, end_date, version,
	updated_date, created_date, created_by, updated_by`

const (
	sqlInsertUser = `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	sqlGetUser = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = ?
	`
	sqlListUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY username
	`
	sqlCountUsers = `SELECT COUNT(*) FROM users`
	sqlUpdateUser = `
		UPDATE users
		SET admin = ?, start_date = ?, end_date = ?, version = version + 1,
			updated_date = ?, updated_by = ?
		WHERE username = ? AND version = ?
	`
)

func scanUser(sc Scanner) (*models.User, error) {
	u := &models.User{}
	err := sc.Scan(
		&u.Username,
		&u.Admin,
		Time(&u.StartDate),
		NullTime(&u.EndDate),
		&u.Version,
		Time(&u.UpdatedDate),
		Time(&u.CreatedDate),
		&u.CreatedBy,
		&u.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.q.insertUser.Exec(ctx,
		user.Username,
		user.Admin,
		user.StartDate,
		user.EndDate,
		user.Version,
		user.UpdatedDate,
		user.CreatedDate,
		user.CreatedBy,
		user.UpdatedBy,
	)
	if err != nil {
		// Проверяем на duplicate username
		if errors.Is(err, storage.ErrDuplicate) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUser retrieves user by username
func (s *Storage) GetUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.q.getUser.One(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user ordered by username
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.q.listUsers.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of users
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	n, err := s.q.countUsers.One(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// UpdateUser updates user information if nobody changed it since
// expectedVersion was read
func (s *Storage) UpdateUser(ctx context.Context, user *models.User, expectedVersion int) error {
	res, err := s.q.updateUser.Exec(ctx,
		user.Admin,
		user.StartDate,
		user.EndDate,
		user.UpdatedDate,
		user.UpdatedBy,
		user.Username,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if res.Changes == 0 {
		return storage.ErrVersionConflict
	}

	user.Version = expectedVersion + 1
	return nil
}
