// Package auth implements users, passwords and sessions on top of storage.
//
// Every operation that needs authorization takes the caller's *Session as
// a parameter. Nothing here keeps session state between calls.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/authd/internal/crypto"
	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/server/settings"
	"github.com/iudanet/authd/internal/server/storage"
)

// SystemUser is recorded as the author of changes made outside of any
// session, e.g. from the command line
const SystemUser = "system"

// AdminUsername is the account created on first start
const AdminUsername = "admin"

// Service - точка входа для операций с пользователями, паролями и сессиями
type Service struct {
	store    storage.Store
	settings *settings.Service
	logger   *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
	dummyErr  error

	hashes crypto.Versions
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithHashVersions replaces the password hashing registry
func WithHashVersions(v crypto.Versions) Option {
	return func(s *Service) {
		s.hashes = v
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service over store
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: settings.New(store),
		logger:   slog.Default(),
		now:      time.Now,
		hashes:   crypto.DefaultVersions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the settings service the auth service reads its policy from
func (s *Service) Settings() *settings.Service {
	return s.settings
}

// Ping checks that storage is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// dummyCompare burns the same amount of work as a real password check, so a
// login for an unknown user takes as long as one with a wrong password
func (s *Service) dummyCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _, s.dummyErr = s.hashes.Hash(crypto.Random(128))
	})
	if s.dummyErr != nil {
		return
	}
	_, _ = s.hashes.Compare(s.hashes.Current(), password, s.dummyHash)
}

// requireAdmin fails with Unauthorized unless caller is an admin
func (s *Service) requireAdmin(ctx context.Context, caller *Session, message string) error {
	if caller == nil {
		return fail.Unauthorized("")
	}
	admin, err := caller.IsAdmin(ctx)
	if err != nil {
		return err
	}
	if !admin {
		return fail.Unauthorized(message)
	}
	return nil
}

// conflict maps an optimistic concurrency miss to a client failure
func conflict(err error) error {
	if errors.Is(err, storage.ErrVersionConflict) {
		return fail.Conflict("")
	}
	return err
}
