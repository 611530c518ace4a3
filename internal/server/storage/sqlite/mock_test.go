package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &Storage{db: db, logger: slog.Default(), path: "mock"}, mock
}

func TestWithTx_Mock_RollbackOnExecError(t *testing.T) {
	s, mock := newMockStorage(t)
	errDisk := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WithArgs("a", 1).WillReturnError(errDisk)
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(ctx context.Context) error {
		_, err := s.Exec(ctx, "INSERT INTO t (v, flag) VALUES (?, ?)", "a", true)
		return err
	})
	require.ErrorIs(t, err, errDisk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_Mock_CommitFailure(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err := s.WithTx(context.Background(), func(ctx context.Context) error {
		_, err := s.Exec(ctx, "INSERT INTO t (v) VALUES (?)", "a")
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_Mock_BeginFailure(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	called := false
	err := s.WithTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExec_Mock_MarshalsArguments(t *testing.T) {
	s, mock := newMockStorage(t)

	at := time.Date(2024, 3, 1, 12, 30, 0, 5, time.FixedZone("MSK", 3*60*60))

	mock.ExpectExec("UPDATE x").
		WithArgs(0, "2024-03-01T09:30:00.000000005Z", nil, "plain").
		WillReturnResult(sqlmock.NewResult(0, 3))

	var noTime *time.Time
	res, err := s.Exec(context.Background(), "UPDATE x SET a = ?, b = ?, c = ?, d = ?", false, at, noTime, "plain")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Changes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
