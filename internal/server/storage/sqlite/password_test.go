package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/storage"
)

func createTestPassword(t *testing.T, ctx context.Context, s *Storage, username string) *models.Password {
	now := time.Now().UTC()
	p := &models.Password{
		Username:    username,
		Hash:        "hash0",
		HashVersion: 1,
		CreatedDate: now,
		UpdatedDate: now,
		CreatedBy:   "admin",
		UpdatedBy:   "admin",
	}
	require.NoError(t, s.CreatePassword(ctx, p))
	return p
}

func TestPasswordStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestUser(t, ctx, s, "alice")
	created := createTestPassword(t, ctx, s, "alice")

	got, err := s.GetPassword(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.Hash, got.Hash)
	assert.Equal(t, 1, got.HashVersion)
	assert.Equal(t, 0, got.Version)
	assert.Nil(t, got.Expiration)
	assert.Nil(t, got.SessionID)

	_, err = s.GetPassword(ctx, "bob")
	assert.ErrorIs(t, err, storage.ErrPasswordNotFound)
}

func TestPasswordStorage_RequiresUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	now := time.Now()
	err := s.CreatePassword(ctx, &models.Password{
		Username:    "ghost",
		Hash:        "hash",
		CreatedDate: now,
		UpdatedDate: now,
		CreatedBy:   "admin",
		UpdatedBy:   "admin",
	})
	require.Error(t, err)
}

func TestPasswordStorage_GetLogin(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestUser(t, ctx, s, "alice")
	createTestUser(t, ctx, s, "nopassword")
	createTestPassword(t, ctx, s, "alice")

	user, pwd, err := s.GetLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice", pwd.Username)
	assert.Equal(t, "hash0", pwd.Hash)

	tests := []struct {
		name     string
		username string
	}{
		{name: "unknown user", username: "ghost"},
		{name: "user without password", username: "nopassword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.GetLogin(ctx, tt.username)
			assert.ErrorIs(t, err, storage.ErrUserNotFound)
		})
	}
}

func TestPasswordStorage_UpdateAndHistory(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestUser(t, ctx, s, "alice")
	p := createTestPassword(t, ctx, s, "alice")

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.AddPasswordHistory(ctx, &models.PasswordHistory{
			Username:    p.Username,
			Version:     p.Version,
			Hash:        p.Hash,
			HashVersion: p.HashVersion,
			CreatedDate: p.UpdatedDate,
			CreatedBy:   p.UpdatedBy,
		}))

		p.Hash = "hash" + string(rune('0'+i))
		p.Expiration = timePtr(time.Now().Add(24 * time.Hour))
		p.UpdatedDate = time.Now()
		require.NoError(t, s.UpdatePassword(ctx, p, i-1))
		assert.Equal(t, i, p.Version)
	}

	got, err := s.GetPassword(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash3", got.Hash)
	assert.Equal(t, 3, got.Version)
	assert.NotNil(t, got.Expiration)

	history, err := s.GetPasswordHistory(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hash2", history[0].Hash, "newest first")
	assert.Equal(t, "hash1", history[1].Hash)

	history, err = s.GetPasswordHistory(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	// stale version
	err = s.UpdatePassword(ctx, p, 1)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)
}

func TestPasswordStorage_HistoryKeyedByVersion(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestUser(t, ctx, s, "alice")
	entry := &models.PasswordHistory{
		Username:    "alice",
		Version:     0,
		Hash:        "hash",
		CreatedDate: time.Now(),
		CreatedBy:   "admin",
		SessionID:   nil,
	}
	require.NoError(t, s.AddPasswordHistory(ctx, entry))
	require.Error(t, s.AddPasswordHistory(ctx, entry))
}

func TestPasswordStorage_SessionReference(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestUser(t, ctx, s, "alice")
	sess := createTestSession(t, ctx, s, "alice", "session-1")

	now := time.Now()
	require.NoError(t, s.CreatePassword(ctx, &models.Password{
		Username:    "alice",
		Hash:        "hash",
		SessionID:   strPtr(sess.ID),
		CreatedDate: now,
		UpdatedDate: now,
		CreatedBy:   "alice",
		UpdatedBy:   "alice",
	}))

	got, err := s.GetPassword(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got.SessionID)
	assert.Equal(t, "session-1", *got.SessionID)
}
