// Package authtest builds an auth.Service on an in-memory database for tests
// of the packages that sit on top of it.
package authtest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/authd/internal/crypto"
	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/internal/server/storage/sqlite"
)

// AdminPassword - стартовый пароль admin в тестовом окружении
const AdminPassword = "Adm1n-Start-Pass"

// HashVersions - дешевые параметры хеширования для тестов
var HashVersions = crypto.Versions{
	crypto.BcryptSHA256{Cost: bcrypt.MinCost},
	crypto.Argon2idSHA512{Time: 1, Memory: 64, Threads: 1, KeyLen: 32},
}

// Env - сервис с созданным admin пользователем
type Env struct {
	Service *auth.Service
	Store   *sqlite.Storage
	Admin   *auth.Session
	Logger  *slog.Logger
}

// New creates the service, bootstraps the admin user and logs them in
func New(t testing.TB) *Env {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := auth.New(store,
		auth.WithLogger(logger),
		auth.WithHashVersions(HashVersions),
	)

	created, err := svc.EnsureAdmin(ctx, AdminPassword)
	require.NoError(t, err)
	require.True(t, created)

	env := &Env{Service: svc, Store: store, Logger: logger}
	env.Admin = env.Login(t, auth.AdminUsername, AdminPassword)
	return env
}

// Login opens a session for username
func (e *Env) Login(t testing.TB, username, password string) *auth.Session {
	t.Helper()
	session, err := e.Service.Login(context.Background(), username, password, false, "127.0.0.1", nil)
	require.NoError(t, err)
	require.NotNil(t, session)
	return session
}

// CreateUser creates a user as admin
func (e *Env) CreateUser(t testing.TB, username, password string, admin bool) *auth.User {
	t.Helper()
	user, err := e.Service.CreateUser(context.Background(), e.Admin, username, password, admin)
	require.NoError(t, err)
	return user
}
