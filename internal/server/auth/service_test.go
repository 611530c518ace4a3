package auth

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/authd/internal/crypto"
	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/storage"
	"github.com/iudanet/authd/internal/server/storage/sqlite"
)

const adminPassword = "Adm1n-Start-Pass"

// testVersions - дешевые параметры, чтобы тесты не тратили 64MB на хеш
var testVersions = crypto.Versions{
	crypto.BcryptSHA256{Cost: bcrypt.MinCost},
	crypto.Argon2idSHA512{Time: 1, Memory: 64, Threads: 1, KeyLen: 32},
}

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	svc   *Service
	store *sqlite.Storage
	clock *fakeClock
	admin *Session
	logs  *bytes.Buffer
}

func newTestService(t *testing.T, wrap func(storage.Store) storage.Store) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var st storage.Store = store
	if wrap != nil {
		st = wrap(store)
	}

	logs := &bytes.Buffer{}
	clock := &fakeClock{now: time.Now().UTC()}
	svc := New(st,
		WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
		WithHashVersions(testVersions),
		WithClock(clock.Now),
	)

	return &testEnv{svc: svc, store: store, clock: clock, logs: logs}
}

// setupTestService returns a service with the admin user created and logged in
func setupTestService(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := newTestService(t, nil)
	created, err := env.svc.EnsureAdmin(ctx, adminPassword)
	require.NoError(t, err)
	require.True(t, created)

	env.admin = env.login(t, AdminUsername, adminPassword)
	return env
}

func (e *testEnv) login(t *testing.T, username, password string) *Session {
	t.Helper()
	session, err := e.svc.Login(context.Background(), username, password, false, "127.0.0.1", nil)
	require.NoError(t, err)
	require.NotNil(t, session)
	return session
}

func (e *testEnv) createUser(t *testing.T, username, password string, admin bool) *User {
	t.Helper()
	user, err := e.svc.CreateUser(context.Background(), e.admin, username, password, admin)
	require.NoError(t, err)
	return user
}

// countingStore counts user lookups
type countingStore struct {
	storage.Store
	getUser int
}

func (c *countingStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	c.getUser++
	return c.Store.GetUser(ctx, username)
}
