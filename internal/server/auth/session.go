package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iudanet/authd/internal/crypto"
	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/settings"
	"github.com/iudanet/authd/internal/server/storage"
)

// TokenBits - размер id сессии и CSRF токена
const TokenBits = 256

// errNoSession is returned where a session was expected but is missing,
// invalid or expired
var errNoSession = fail.NotFound("No valid session found")

// Session is an authenticated login
type Session struct {
	svc  *Service
	user *User // загружается один раз, см. User
	models.Session
}

// CreateSession opens a new session for user. Without rememberMe it lasts a
// day, otherwise session.expirationDays.
func (s *Service) CreateSession(ctx context.Context, user *User, rememberMe bool, ipAddress string, userAgent *string) (*Session, error) {
	now := s.clock()

	expires := now.Add(day)
	if rememberMe {
		days, err := s.settings.Int(ctx, settings.SessionExpirationDays)
		if err != nil {
			return nil, err
		}
		days = max(0, min(days, *settings.SessionExpirationDays.Max))
		expires = now.AddDate(0, 0, days)
	}

	session := &Session{
		svc:  s,
		user: user,
		Session: models.Session{
			ID:          crypto.Random(TokenBits),
			Username:    user.Username,
			CSRFToken:   crypto.Random(TokenBits),
			CSRFDate:    now,
			Valid:       true,
			IPAddress:   ipAddress,
			UserAgent:   userAgent,
			Expires:     expires,
			CreatedDate: now,
		},
	}

	if err := s.store.CreateSession(ctx, &session.Session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns the session with id, or nil if there is no such session
// or it can no longer be used. The two cases are not distinguished.
func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}

	ms, err := s.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !ms.Usable(s.clock()) {
		return nil, nil
	}
	return &Session{svc: s, Session: *ms}, nil
}

// Logout invalidates this session
func (s *Session) Logout(ctx context.Context) error {
	if err := s.svc.store.InvalidateSession(ctx, s.ID); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return errNoSession
		}
		return err
	}
	s.Valid = false
	return nil
}

// LogoutSession invalidates the session with id on behalf of caller. An
// empty id means the caller's own session. Only admins can end sessions of
// other users.
func (s *Service) LogoutSession(ctx context.Context, caller *Session, id string) error {
	if caller == nil {
		return fail.Unauthorized("")
	}
	if id == "" || id == caller.ID {
		return caller.Logout(ctx)
	}

	target, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return errNoSession
	}

	if target.Username != caller.Username {
		admin, err := caller.IsAdmin(ctx)
		if err != nil {
			return err
		}
		if !admin {
			// чужая сессия для не-админа выглядит как отсутствующая
			return errNoSession
		}
	}

	return target.Logout(ctx)
}

// LogoutAll invalidates every usable session of username except exceptID
func (s *Service) LogoutAll(ctx context.Context, username, exceptID string) (int64, error) {
	n, err := s.store.InvalidateUserSessions(ctx, username, exceptID, s.clock())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "sessions invalidated",
			slog.String("username", username),
			slog.Int64("count", n))
	}
	return n, nil
}

// User returns the owner of the session. It is loaded once per Session.
func (s *Session) User(ctx context.Context) (*User, error) {
	if s.user != nil {
		return s.user, nil
	}

	u, err := s.svc.store.GetUser(ctx, s.Username)
	if err != nil {
		return nil, err
	}
	s.user = &User{svc: s.svc, User: *u}
	return s.user, nil
}

// IsAdmin reports whether the owner of the session is an admin
func (s *Session) IsAdmin(ctx context.Context) (bool, error) {
	u, err := s.User(ctx)
	if err != nil {
		return false, err
	}
	return u.Admin, nil
}

// RefreshCSRF issues a new CSRF token when the current one is older than
// session.csrfAgeMinutes. It reports whether the token changed.
func (s *Session) RefreshCSRF(ctx context.Context) (bool, error) {
	minutes, err := s.svc.settings.Int(ctx, settings.SessionCSRFAgeMinutes)
	if err != nil {
		return false, err
	}

	now := s.svc.clock()
	if now.Sub(s.CSRFDate) < time.Duration(minutes)*time.Minute {
		return false, nil
	}

	token := crypto.Random(TokenBits)
	if err := s.svc.store.UpdateSessionCSRF(ctx, s.ID, token, now); err != nil {
		return false, err
	}
	s.CSRFToken = token
	s.CSRFDate = now
	return true, nil
}

// SessionHistory lists the sessions of username, newest first. Callers see
// their own sessions, admins see everyone's.
func (s *Service) SessionHistory(ctx context.Context, caller *Session, username string) ([]*models.Session, error) {
	if caller == nil {
		return nil, fail.Unauthorized("")
	}
	if username == "" {
		username = caller.Username
	}
	if username != caller.Username {
		if err := s.requireAdmin(ctx, caller, "You do not have access to this user"); err != nil {
			return nil, err
		}
	}
	return s.store.GetUserSessions(ctx, username)
}
