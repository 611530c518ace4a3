package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/storage"
)

const (
	sqlInsertPassword = `
		INSERT INTO passwords (username, version, hash, hash_version, expiration, session_id,
			updated_date, updated_by, created_date, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	sqlGetPassword = `
		SELECT username, version, hash, hash_version, expiration, session_id,
			updated_date, updated_by, created_date, created_by
		FROM passwords
		WHERE username = ?
	`
	sqlGetLogin = `
		SELECT u.username, u.admin, u.start_date, u.end_date, u.version,
			u.updated_date, u.created_date, u.created_by, u.updated_by,
			p.version, p.hash, p.hash_version, p.expiration, p.session_id,
			p.updated_date, p.updated_by, p.created_date, p.created_by
		FROM users u
		INNER JOIN passwords p ON p.username = u.username
		WHERE u.username = ?
	`
	sqlUpdatePassword = `
		UPDATE passwords
		SET version = version + 1, hash = ?, hash_version = ?, expiration = ?, session_id = ?,
			updated_date = ?, updated_by = ?
		WHERE username = ? AND version = ?
	`
	sqlInsertHistory = `
		INSERT INTO password_history (username, version, hash, hash_version, session_id,
			created_date, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	sqlGetHistory = `
		SELECT username, version, hash, hash_version, session_id, created_date, created_by
		FROM password_history
		WHERE username = ?
		ORDER BY version DESC
		LIMIT ?
	`
)

type loginRow struct {
	user     *models.User
	password *models.Password
}

func scanPassword(sc Scanner) (*models.Password, error) {
	p := &models.Password{}
	err := sc.Scan(
		&p.Username,
		&p.Version,
		&p.Hash,
		&p.HashVersion,
		NullTime(&p.Expiration),
		&p.SessionID,
		Time(&p.UpdatedDate),
		&p.UpdatedBy,
		Time(&p.CreatedDate),
		&p.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanLogin(sc Scanner) (loginRow, error) {
	u := &models.User{}
	p := &models.Password{}
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
		&p.Version,
		&p.Hash,
		&p.HashVersion,
		NullTime(&p.Expiration),
		&p.SessionID,
		Time(&p.UpdatedDate),
		&p.UpdatedBy,
		Time(&p.CreatedDate),
		&p.CreatedBy,
	)
	if err != nil {
		return loginRow{}, err
	}
	p.Username = u.Username
	return loginRow{user: u, password: p}, nil
}

func scanHistory(sc Scanner) (*models.PasswordHistory, error) {
	h := &models.PasswordHistory{}
	err := sc.Scan(
		&h.Username,
		&h.Version,
		&h.Hash,
		&h.HashVersion,
		&h.SessionID,
		Time(&h.CreatedDate),
		&h.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// CreatePassword inserts the first password of a user
func (s *Storage) CreatePassword(ctx context.Context, password *models.Password) error {
	_, err := s.q.insertPwd.Exec(ctx,
		password.Username,
		password.Version,
		password.Hash,
		password.HashVersion,
		password.Expiration,
		password.SessionID,
		password.UpdatedDate,
		password.UpdatedBy,
		password.CreatedDate,
		password.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert password: %w", err)
	}
	return nil
}

// GetPassword retrieves the current password of a user
func (s *Storage) GetPassword(ctx context.Context, username string) (*models.Password, error) {
	p, err := s.q.getPwd.One(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrPasswordNotFound
		}
		return nil, fmt.Errorf("failed to get password: %w", err)
	}
	return p, nil
}

// GetLogin retrieves a user and its password in one query
func (s *Storage) GetLogin(ctx context.Context, username string) (*models.User, *models.Password, error) {
	row, err := s.q.getLogin.One(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, storage.ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to get login: %w", err)
	}
	return row.user, row.password, nil
}

// UpdatePassword overwrites the current password if nobody changed it since
// expectedVersion was read
func (s *Storage) UpdatePassword(ctx context.Context, password *models.Password, expectedVersion int) error {
	res, err := s.q.updatePwd.Exec(ctx,
		password.Hash,
		password.HashVersion,
		password.Expiration,
		password.SessionID,
		password.UpdatedDate,
		password.UpdatedBy,
		password.Username,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if res.Changes == 0 {
		return storage.ErrVersionConflict
	}

	password.Version = expectedVersion + 1
	return nil
}

// AddPasswordHistory archives a previous password
func (s *Storage) AddPasswordHistory(ctx context.Context, entry *models.PasswordHistory) error {
	_, err := s.q.insertHist.Exec(ctx,
		entry.Username,
		entry.Version,
		entry.Hash,
		entry.HashVersion,
		entry.SessionID,
		entry.CreatedDate,
		entry.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert password history: %w", err)
	}
	return nil
}

// GetPasswordHistory returns up to limit archived passwords, newest first
func (s *Storage) GetPasswordHistory(ctx context.Context, username string, limit int) ([]*models.PasswordHistory, error) {
	if limit <= 0 {
		return nil, nil
	}

	history, err := s.q.getHist.All(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get password history: %w", err)
	}
	return history, nil
}
