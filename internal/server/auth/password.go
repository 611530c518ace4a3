package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/settings"
	"github.com/iudanet/authd/internal/server/storage"
)

const day = 24 * time.Hour

// errInvalidLogin is the single failure for an unknown user and a wrong
// password, the two must not be distinguishable
var errInvalidLogin = fail.NotFound("Invalid user or password")

// Password is the current credential of a user
type Password struct {
	svc *Service
	models.Password
}

// ValidatePassword checks plaintext against the current password policy
// without storing anything
func (s *Service) ValidatePassword(ctx context.Context, plaintext string) error {
	policy, err := s.settings.PasswordPolicy(ctx)
	if err != nil {
		return err
	}
	return policy.Validate(plaintext)
}

// expiration returns the expiration for a password set now, nil if
// passwords don't expire
func (s *Service) expiration(ctx context.Context, mustChange bool) (*time.Time, error) {
	now := s.clock()
	if mustChange {
		exp := now.Add(day)
		return &exp, nil
	}

	days, err := s.settings.Int(ctx, settings.PasswordExpirationDays)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, nil
	}
	exp := now.AddDate(0, 0, days)
	return &exp, nil
}

// NewPassword validates and hashes plaintext. The result is not stored,
// call Insert, usually in the same transaction as the user insert.
func (s *Service) NewPassword(ctx context.Context, username, plaintext, createdBy string, sessionID *string) (*Password, error) {
	if err := s.ValidatePassword(ctx, plaintext); err != nil {
		return nil, err
	}

	expiration, err := s.expiration(ctx, false)
	if err != nil {
		return nil, err
	}

	hash, version, err := s.hashes.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	return &Password{
		svc: s,
		Password: models.Password{
			Username:    username,
			Version:     0,
			Hash:        hash,
			HashVersion: version,
			Expiration:  expiration,
			SessionID:   sessionID,
			CreatedDate: now,
			CreatedBy:   createdBy,
			UpdatedDate: now,
			UpdatedBy:   createdBy,
		},
	}, nil
}

// Insert stores a password created with NewPassword
func (p *Password) Insert(ctx context.Context) error {
	return p.svc.store.CreatePassword(ctx, &p.Password)
}

// GetPassword returns the current password of username
func (s *Service) GetPassword(ctx context.Context, username string) (*Password, error) {
	pw, err := s.store.GetPassword(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrPasswordNotFound) {
			return nil, fail.NotFound(fmt.Sprintf("No password found for user %s", username))
		}
		return nil, err
	}
	return &Password{svc: s, Password: *pw}, nil
}

// Login checks the credentials and opens a new session
func (s *Service) Login(ctx context.Context, username, plaintext string, rememberMe bool, ipAddress string, userAgent *string) (*Session, error) {
	var session *Session

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		u, pw, err := s.store.GetLogin(ctx, username)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				s.dummyCompare(plaintext)
				return errInvalidLogin
			}
			return err
		}

		p := &Password{svc: s, Password: *pw}
		ok, err := p.Compare(plaintext)
		if err != nil {
			return err
		}
		if !ok {
			return errInvalidLogin
		}

		// пользователь уже опознан, дальше можно отвечать конкретно
		user := &User{svc: s, User: *u}
		if !user.Active(s.clock()) {
			return fail.New("Your account is not active")
		}
		if p.Expired() {
			return fail.New("Your password has expired")
		}

		session, err = s.CreateSession(ctx, user, rememberMe, ipAddress, userAgent)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("username", username))
	return session, nil
}

// Compare reports whether plaintext matches the password. An unknown hash
// version is an error, not a mismatch.
func (p *Password) Compare(plaintext string) (bool, error) {
	return p.svc.hashes.Compare(p.HashVersion, plaintext, p.Hash)
}

// Expired reports whether the password has an expiration in the past
func (p *Password) Expired() bool {
	return p.Expiration != nil && p.Expiration.Before(p.svc.clock())
}

// Update replaces the password with newPlaintext. The previous hash goes to
// history, and every other session of the user is logged out. A nil session
// means the change is made by the system. mustChange gives the new password
// one day before it expires.
func (p *Password) Update(ctx context.Context, newPlaintext string, session *Session, mustChange bool) error {
	s := p.svc

	if err := s.ValidatePassword(ctx, newPlaintext); err != nil {
		return err
	}

	same, err := p.Compare(newPlaintext)
	if err != nil {
		return err
	}
	if same {
		return fail.New("Your new password cannot match your previous password")
	}

	reuse, err := s.settings.Int(ctx, settings.PasswordReuseCheck)
	if err != nil {
		return err
	}
	if reuse > 0 {
		history, err := s.store.GetPasswordHistory(ctx, p.Username, reuse)
		if err != nil {
			return err
		}
		for _, h := range history {
			// каждая запись проверяется своей версией хеша
			match, err := s.hashes.Compare(h.HashVersion, newPlaintext, h.Hash)
			if err != nil {
				return err
			}
			if match {
				return fail.Newf("Your new password cannot match your previous %d passwords", reuse+1)
			}
		}
	}

	expiration, err := s.expiration(ctx, mustChange)
	if err != nil {
		return err
	}

	hash, version, err := s.hashes.Hash(newPlaintext)
	if err != nil {
		return err
	}

	updatedBy := SystemUser
	exceptID := ""
	var sessionID *string
	if session != nil {
		updatedBy = session.Username
		exceptID = session.ID
		id := session.ID
		sessionID = &id
	}

	next := p.Password
	next.Hash = hash
	next.HashVersion = version
	next.Expiration = expiration
	next.SessionID = sessionID
	next.UpdatedBy = updatedBy
	next.UpdatedDate = s.clock()

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.AddPasswordHistory(ctx, &models.PasswordHistory{
			Username:    p.Username,
			Version:     p.Version,
			Hash:        p.Hash,
			HashVersion: p.HashVersion,
			SessionID:   p.SessionID,
			CreatedBy:   p.UpdatedBy,
			CreatedDate: p.UpdatedDate,
		}); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				// эта версия уже в истории, значит пароль успели сменить
				return fail.Conflict("")
			}
			return err
		}

		if err := s.store.UpdatePassword(ctx, &next, p.Version); err != nil {
			return conflict(err)
		}

		_, err := s.LogoutAll(ctx, p.Username, exceptID)
		return err
	})
	if err != nil {
		return err
	}

	p.Password = next
	s.logger.InfoContext(ctx, "password updated",
		slog.String("username", p.Username),
		slog.String("updated_by", updatedBy))
	return nil
}
