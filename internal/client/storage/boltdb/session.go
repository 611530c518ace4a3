package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/authd/internal/client/storage"
)

// SaveSession stores the session under its server URL
func (s *Storage) SaveSession(ctx context.Context, data *storage.SessionData) error {
	if data.Server == "" {
		return errors.New("session server is required")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.update(bucketSessions, func(b *bbolt.Bucket) error {
		if err := b.Put([]byte(data.Server), raw); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// GetSession retrieves the session stored for server
func (s *Storage) GetSession(ctx context.Context, server string) (*storage.SessionData, error) {
	var data *storage.SessionData

	err := s.view(bucketSessions, func(b *bbolt.Bucket) error {
		raw := b.Get([]byte(server))
		if raw == nil {
			return storage.ErrSessionNotFound
		}

		data = &storage.SessionData{}
		if err := json.Unmarshal(raw, data); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// DeleteSession removes the session stored for server
func (s *Storage) DeleteSession(ctx context.Context, server string) error {
	return s.update(bucketSessions, func(b *bbolt.Bucket) error {
		if b.Get([]byte(server)) == nil {
			return storage.ErrSessionNotFound
		}
		if err := b.Delete([]byte(server)); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}
