package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/iudanet/authd/internal/server/storage"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

type txState struct {
	tx *sql.Tx
	// aborted is set when a nested WithTx returned an error
	aborted bool
}

func txFrom(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

func inTx(ctx context.Context) bool {
	return txFrom(ctx) != nil
}

// conn returns the transaction carried by ctx, or the pool
func (s *Storage) conn(ctx context.Context) querier {
	if st := txFrom(ctx); st != nil {
		return st.tx
	}
	return s.db
}

// WithTx runs fn in a transaction. Every storage call made with the context
// passed to fn is part of it.
//
// A WithTx inside fn joins the outer transaction instead of starting its
// own, only the outermost call commits. An error or panic anywhere rolls
// back everything since the outermost WithTx. The error is returned as is,
// panics are rethrown.
//
//	err := s.WithTx(ctx, func(ctx context.Context) error {
//	    if _, err := insertUser.Exec(ctx, ...); err != nil {
//	        return err
//	    }
//	    return s.WithTx(ctx, insertPassword) // joins
//	})
func (s *Storage) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if st := txFrom(ctx); st != nil {
		defer func() {
			if err != nil {
				st.aborted = true
			}
		}()
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	st := &txState{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err == nil && st.aborted {
			err = storage.ErrTxAborted
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.WarnContext(ctx, "failed to rollback transaction",
					slog.Any("error", rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, st))
}
