package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/authd/internal/server/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

var (
	groupPattern     = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	migrationPattern = regexp.MustCompile(`^(\d{4})_[a-z0-9_]+\.sql$`)
)

// Migrations returns the system schema scripts in order.
// Scripts are append-only: once released a file is never edited, new
// changes go into a new file with the next number.
func Migrations() []string {
	scripts, err := loadMigrations(embedMigrations, "migrations")
	if err != nil {
		// embedded at build time, a bad file is a programming error
		panic(err)
	}
	return scripts
}

func loadMigrations(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scripts := make([]string, 0, len(names))
	for i, name := range names {
		m := migrationPattern.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration file name %q", name)
		}
		if n, _ := strconv.Atoi(m[1]); n != i {
			return nil, fmt.Errorf("migration %q is out of sequence, expected number %04d", name, i)
		}

		b, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", name, err)
		}
		scripts = append(scripts, string(b))
	}

	return scripts, nil
}

// EnsureSchema brings the schema group up to len(scripts)-1.
//
// Each attempt runs in a single transaction: the version table is created if
// needed, then every missing script is applied one by one, locking the
// previous version row and recording the new one. A crash mid way leaves the
// database at the version it started with.
//
// If another process holds the lock the attempt is rolled back and retried
// with exponential back-off. A database newer than scripts fails with
// storage.ErrSchemaNewer.
func (s *Storage) EnsureSchema(ctx context.Context, group string, scripts []string) error {
	if !groupPattern.MatchString(group) {
		return fmt.Errorf("invalid schema group name %q", group)
	}
	if len(scripts) == 0 {
		return fmt.Errorf("schema group %q has no scripts", group)
	}

	b := retry.WithMaxRetries(s.schemaRetries, retry.NewExponential(s.schemaBackoff))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := s.WithTx(ctx, func(ctx context.Context) error {
			return s.ensureSchema(ctx, group, scripts)
		})
		if errors.Is(err, storage.ErrSchemaLocked) {
			s.logger.InfoContext(ctx, "schema table locked, waiting",
				slog.String("group", group))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to ensure schema %s: %w", group, err)
	}
	return nil
}

func (s *Storage) ensureSchema(ctx context.Context, group string, scripts []string) error {
	table := group + "_schema_versions"

	if _, err := s.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+table+` (
			version INTEGER NOT NULL PRIMARY KEY,
			script TEXT NOT NULL,
			locked BOOLEAN NOT NULL,
			run_date TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}

	current := len(scripts) - 1

	for {
		dbVer := -1
		var locked bool

		err := s.QueryRow(ctx, `SELECT version, locked FROM `+table+` ORDER BY version DESC LIMIT 1`).
			Scan(&dbVer, &locked)
		if err != nil && !errors.Is(translate(err), storage.ErrNotFound) {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		if locked {
			return storage.ErrSchemaLocked
		}

		if dbVer == current {
			return nil
		}

		if dbVer > current {
			return fmt.Errorf("%w: %s is at version %d, code knows %d",
				storage.ErrSchemaNewer, s.path, dbVer, current)
		}

		if dbVer >= 0 {
			if _, err := s.Exec(ctx, `UPDATE `+table+` SET locked = ? WHERE version = ?`, true, dbVer); err != nil {
				return fmt.Errorf("failed to lock schema version %d: %w", dbVer, err)
			}
		}

		dbVer++
		s.logger.InfoContext(ctx, "updating schema",
			slog.String("group", group),
			slog.Int("version", dbVer),
			slog.String("path", s.path))

		if _, err := s.Exec(ctx, scripts[dbVer]); err != nil {
			return fmt.Errorf("failed to run %s script %d: %w", group, dbVer, err)
		}

		if _, err := s.Exec(ctx, `
			INSERT INTO `+table+` (version, script, locked, run_date)
			VALUES (?, ?, ?, ?)`,
			dbVer, strings.TrimSpace(scripts[dbVer]), false, time.Now()); err != nil {
			return fmt.Errorf("failed to record schema version %d: %w", dbVer, err)
		}
	}
}

// SchemaVersion returns the highest applied version of group, -1 if none
func (s *Storage) SchemaVersion(ctx context.Context, group string) (int, error) {
	if !groupPattern.MatchString(group) {
		return 0, fmt.Errorf("invalid schema group name %q", group)
	}

	var version int
	err := s.QueryRow(ctx, `SELECT COALESCE(MAX(version), -1) FROM `+group+`_schema_versions`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
