package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/iudanet/authd/internal/server/storage"
)

// MemoryPath is the address of an in-memory database. It is never written to
// disk and lives until Close.
const MemoryPath = ":memory:"

// SystemSchema is the schema group holding users, sessions, passwords and settings
const SystemSchema = "system"

// Storage represents SQLite storage implementation
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
	path   string

	schemaRetries uint64
	schemaBackoff time.Duration

	// подготовленные запросы, заполняются в New после миграций
	q *queries

	mu    sync.Mutex
	stmts []*sql.Stmt
}

// Option configures a Storage
type Option func(*Storage)

// WithLogger sets the logger used for schema and transaction messages
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		s.logger = logger
	}
}

// WithSchemaRetry sets how many times EnsureSchema waits for a locked schema
// and the initial back-off between attempts
func WithSchemaRetry(retries uint64, backoff time.Duration) Option {
	return func(s *Storage) {
		s.schemaRetries = retries
		s.schemaBackoff = backoff
	}
}

// New creates a new SQLite storage instance and brings the system schema up
// to date.
// dbPath is the path to the SQLite database file, its directory is created
// if missing.
// Use ":memory:" for in-memory database (useful for testing)
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	s, err := Open(ctx, dbPath, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.EnsureSchema(ctx, SystemSchema, Migrations()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := s.prepareQueries(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Open opens the database without touching any schema
func Open(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	s := &Storage{
		logger:        slog.Default(),
		path:          dbPath,
		schemaRetries: 10,
		schemaBackoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !isMemory(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Открываем соединение с БД
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Один писатель. Для :memory: это еще и единственная копия базы,
	// поэтому соединение никогда не закрывается пулом.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	// Включаем WAL mode и другие оптимизации
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s.db = db
	return s, nil
}

// Close closes prepared statements and the database connection
func (s *Storage) Close() error {
	s.mu.Lock()
	for _, stmt := range s.stmts {
		_ = stmt.Close()
	}
	s.stmts = nil
	s.mu.Unlock()

	return s.db.Close()
}

// Path returns the address the storage was opened with
func (s *Storage) Path() string {
	return s.path
}

// DB returns the underlying database connection for testing purposes
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Ping checks the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	if inTx(ctx) {
		return nil
	}
	return s.db.PingContext(ctx)
}

// Exec runs an ad hoc statement
func (s *Storage) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	res, err := s.conn(ctx).ExecContext(ctx, query, marshal(args)...)
	if err != nil {
		return Result{}, translate(err)
	}
	return newResult(res)
}

// Query runs an ad hoc query
func (s *Storage) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, marshal(args)...)
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// QueryRow runs an ad hoc query expected to return at most one row
func (s *Storage) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn(ctx).QueryRowContext(ctx, query, marshal(args)...)
}

func isMemory(dbPath string) bool {
	return dbPath == MemoryPath || strings.Contains(dbPath, "mode=memory")
}

// translate maps driver errors onto storage sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %s", storage.ErrDuplicate, serr.Error())
		}
	}
	return err
}
