package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/authd/internal/server/storage"
)

// Scanner is implemented by *sql.Row and *sql.Rows
type Scanner interface {
	Scan(dest ...any) error
}

// Result is the outcome of an Update
type Result struct {
	Changes      int64
	LastInsertID int64
}

func newResult(res sql.Result) (Result, error) {
	changes, err := res.RowsAffected()
	if err != nil {
		return Result{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Result{}, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return Result{Changes: changes, LastInsertID: id}, nil
}

// Query is a prepared statement returning rows of R
type Query[R any] struct {
	s    *Storage
	stmt *sql.Stmt
	scan func(Scanner) (R, error)
}

// Update is a prepared statement that doesn't return rows
type Update struct {
	s    *Storage
	stmt *sql.Stmt
}

// PrepareQuery compiles query once. scan decodes a single row.
//
// Statements must be prepared outside of any transaction, normally right
// after the schema is in place: there is only one connection.
func PrepareQuery[R any](ctx context.Context, s *Storage, query string, scan func(Scanner) (R, error)) (*Query[R], error) {
	stmt, err := s.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	return &Query[R]{s: s, stmt: stmt, scan: scan}, nil
}

// PrepareUpdate compiles an insert, update or delete statement once
func (s *Storage) PrepareUpdate(ctx context.Context, query string) (*Update, error) {
	stmt, err := s.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	return &Update{s: s, stmt: stmt}, nil
}

func (s *Storage) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if inTx(ctx) {
		return nil, errors.New("statements cannot be prepared inside a transaction")
	}

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	s.mu.Lock()
	s.stmts = append(s.stmts, stmt)
	s.mu.Unlock()

	return stmt, nil
}

// bind returns stmt bound to the transaction in ctx, if any
func (s *Storage) bind(ctx context.Context, stmt *sql.Stmt) *sql.Stmt {
	if st := txFrom(ctx); st != nil {
		return st.tx.StmtContext(ctx, stmt)
	}
	return stmt
}

// All returns every row
func (q *Query[R]) All(ctx context.Context, args ...any) ([]R, error) {
	rows, err := q.s.bind(ctx, q.stmt).QueryContext(ctx, marshal(args)...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []R
	for rows.Next() {
		r, err := q.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return result, nil
}

// One returns the first row, or storage.ErrNotFound
func (q *Query[R]) One(ctx context.Context, args ...any) (R, error) {
	var zero R

	row := q.s.bind(ctx, q.stmt).QueryRowContext(ctx, marshal(args)...)
	r, err := q.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, storage.ErrNotFound
		}
		return zero, fmt.Errorf("failed to scan row: %w", err)
	}
	return r, nil
}

// Exec runs the statement
func (u *Update) Exec(ctx context.Context, args ...any) (Result, error) {
	res, err := u.s.bind(ctx, u.stmt).ExecContext(ctx, marshal(args)...)
	if err != nil {
		return Result{}, translate(err)
	}
	return newResult(res)
}
