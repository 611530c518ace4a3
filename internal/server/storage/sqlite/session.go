package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/storage"
)

const sessionColumns = `session_id, username, valid, csrf_token, csrf_date,
	ip_address, user_agent, expires, created_date`

const (
	sqlInsertSession = `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	sqlGetSession = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE session_id = ?
	`
	sqlGetUserSessions = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE username = ?
		ORDER BY created_date DESC
	`
	sqlInvalidateSession = `UPDATE sessions SET valid = ? WHERE session_id = ?`
	// только действующие сессии, кроме текущей
	sqlInvalidateUserSessions = `
		UPDATE sessions
		SET valid = ?
		WHERE username = ?
			AND session_id <> ?
			AND expires >= ?
			AND valid = ?
	`
	sqlUpdateCSRF = `UPDATE sessions SET csrf_token = ?, csrf_date = ? WHERE session_id = ?`
)

func scanSession(sc Scanner) (*models.Session, error) {
	s := &models.Session{}
	err := sc.Scan(
		&s.ID,
		&s.Username,
		&s.Valid,
		&s.CSRFToken,
		Time(&s.CSRFDate),
		&s.IPAddress,
		&s.UserAgent,
		Time(&s.Expires),
		Time(&s.CreatedDate),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSession stores a new session
func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := s.q.insertSess.Exec(ctx,
		session.ID,
		session.Username,
		session.Valid,
		session.CSRFToken,
		session.CSRFDate,
		session.IPAddress,
		session.UserAgent,
		session.Expires,
		session.CreatedDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves session by id
func (s *Storage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.q.getSess.One(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// GetUserSessions retrieves all sessions of a user
func (s *Storage) GetUserSessions(ctx context.Context, username string) ([]*models.Session, error) {
	sessions, err := s.q.userSess.All(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query user sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	return sessions, nil
}

// InvalidateSession marks one session as logged out
func (s *Storage) InvalidateSession(ctx context.Context, id string) error {
	res, err := s.q.invalidate.Exec(ctx, false, id)
	if err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	if res.Changes == 0 {
		return storage.ErrSessionNotFound
	}
	return nil
}

// InvalidateUserSessions marks every other live session of username as
// logged out
func (s *Storage) InvalidateUserSessions(ctx context.Context, username, exceptID string, now time.Time) (int64, error) {
	res, err := s.q.invalidateU.Exec(ctx, false, username, exceptID, now, true)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate user sessions: %w", err)
	}
	return res.Changes, nil
}

// UpdateSessionCSRF replaces the CSRF token of a session
func (s *Storage) UpdateSessionCSRF(ctx context.Context, id, token string, date time.Time) error {
	res, err := s.q.updateCSRF.Exec(ctx, token, date, id)
	if err != nil {
		return fmt.Errorf("failed to update csrf token: %w", err)
	}
	if res.Changes == 0 {
		return storage.ErrSessionNotFound
	}
	return nil
}
