package storage

import "context"

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveServer запоминает сервер последнего login
	SaveServer(ctx context.Context, server string) error

	// GetServer returns "" if no server was saved
	GetServer(ctx context.Context) (string, error)
}
