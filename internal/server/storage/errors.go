package storage

import "errors"

// Common storage errors
var (
	// ErrNotFound indicates that a query expected a row but got none
	ErrNotFound = errors.New("record not found")

	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrPasswordNotFound indicates that the user has no password row
	ErrPasswordNotFound = errors.New("password not found")

	// ErrSessionNotFound indicates that no session has the given id
	ErrSessionNotFound = errors.New("session not found")

	// ErrSettingNotFound indicates that a setting has no stored value
	ErrSettingNotFound = errors.New("setting not found")

	// ErrVersionConflict indicates that an update matched no row because the
	// stored version moved on
	ErrVersionConflict = errors.New("record version conflict")

	// ErrDuplicate indicates that an insert violated a unique or primary key constraint
	ErrDuplicate = errors.New("record already exists")

	// ErrSchemaLocked indicates that another process is applying a migration
	// step for the same schema group
	ErrSchemaLocked = errors.New("schema is locked by another migration")

	// ErrSchemaNewer indicates that the database was migrated by a newer build
	// than the one running
	ErrSchemaNewer = errors.New("database schema is newer than the code")

	// ErrTxAborted is returned by an outer transaction when a nested
	// transaction failed, but the error was not propagated
	ErrTxAborted = errors.New("transaction aborted by a nested call")
)
