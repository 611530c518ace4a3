package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

const keyServer = "server"

// SaveServer saves the server used when --server is not given
func (s *Storage) SaveServer(ctx context.Context, server string) error {
	return s.update(bucketMetadata, func(b *bbolt.Bucket) error {
		if err := b.Put([]byte(keyServer), []byte(server)); err != nil {
			return fmt.Errorf("failed to save server: %w", err)
		}
		return nil
	})
}

// GetServer returns the saved server or "" if none was saved
func (s *Storage) GetServer(ctx context.Context) (string, error) {
	var server string

	err := s.view(bucketMetadata, func(b *bbolt.Bucket) error {
		// значение копируем, после транзакции память bbolt недоступна
		server = string(b.Get([]byte(keyServer)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get server: %w", err)
	}

	return server, nil
}
