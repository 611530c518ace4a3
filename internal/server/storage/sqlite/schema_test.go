package sqlite

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/authd/internal/server/storage"
)

func openEmpty(t *testing.T, opts ...Option) *Storage {
	t.Helper()
	s, err := Open(context.Background(), MemoryPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var testScripts = []string{
	`CREATE TABLE s0 (id INTEGER PRIMARY KEY)`,
	`CREATE TABLE s1 (id INTEGER PRIMARY KEY)`,
	`INSERT INTO s0 (id) VALUES (42)`,
}

func TestEnsureSchema_FromEmpty(t *testing.T) {
	ctx := context.Background()
	s := openEmpty(t)

	require.NoError(t, s.EnsureSchema(ctx, "test", testScripts))

	version, err := s.SchemaVersion(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// все три скрипта применены
	var id int
	require.NoError(t, s.QueryRow(ctx, `SELECT id FROM s0`).Scan(&id))
	assert.Equal(t, 42, id)
	_, err = s.Exec(ctx, `SELECT COUNT(*) FROM s1`)
	require.NoError(t, err)

	var rows, locked int
	require.NoError(t, s.QueryRow(ctx,
		`SELECT COUNT(*), SUM(locked) FROM test_schema_versions`).Scan(&rows, &locked))
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, locked, "предыдущие версии помечаются locked")

	var script string
	require.NoError(t, s.QueryRow(ctx,
		`SELECT script FROM test_schema_versions WHERE version = 1`).Scan(&script))
	assert.Equal(t, testScripts[1], script)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openEmpty(t)

	require.NoError(t, s.EnsureSchema(ctx, "test", testScripts))
	require.NoError(t, s.EnsureSchema(ctx, "test", testScripts))

	var n int
	require.NoError(t, s.QueryRow(ctx, `SELECT COUNT(*) FROM s0`).Scan(&n))
	assert.Equal(t, 1, n, "insert script must run exactly once")
}

func TestEnsureSchema_Append(t *testing.T) {
	ctx := context.Background()
	s := openEmpty(t)

	require.NoError(t, s.EnsureSchema(ctx, "test", testScripts[:1]))
	version, err := s.SchemaVersion(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	require.NoError(t, s.EnsureSchema(ctx, "test", testScripts))
	version, err = s.SchemaVersion(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestEnsureSchema_Newer(t *testing.T) {
	ctx := context.Background()
	s := openEmpty(t)

	require.NoError(t, s.EnsureSchema(ctx, "test", testScripts))

	err := s.EnsureSchema(ctx, "test", testScripts[:2])
	require.ErrorIs(t, err, storage.ErrSchemaNewer)
}

func TestEnsureSchema_FailedScriptRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openEmpty(t)

	scripts := []string{
		`CREATE TABLE s0 (id INTEGER PRIMARY KEY)`,
		`THIS IS NOT SQL`,
	}

	require.Error(t, s.EnsureSchema(ctx, "test", scripts))

	// весь прогон в одной транзакции: ни s0, ни таблицы версий
	var n int
	require.NoError(t, s.QueryRow(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE name IN ('s0', 'test_schema_versions')`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestEnsureSchema_LockedGivesUp(t *testing.T) {
	ctx := context.Background()
	s := openEmpty(t, WithSchemaRetry(2, time.Millisecond))

	require.NoError(t, s.EnsureSchema(ctx, "test", testScripts[:1]))

	// другой процесс в середине миграции
	_, err := s.Exec(ctx, `UPDATE test_schema_versions SET locked = ? WHERE version = 0`, true)
	require.NoError(t, err)

	start := time.Now()
	err = s.EnsureSchema(ctx, "test", testScripts)
	require.ErrorIs(t, err, storage.ErrSchemaLocked)
	assert.Less(t, time.Since(start), 5*time.Second)

	version, err := s.SchemaVersion(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestEnsureSchema_LockReleased(t *testing.T) {
	ctx := context.Background()
	s := openEmpty(t, WithSchemaRetry(20, 5*time.Millisecond))

	require.NoError(t, s.EnsureSchema(ctx, "test", testScripts[:1]))
	_, err := s.Exec(ctx, `UPDATE test_schema_versions SET locked = ? WHERE version = 0`, true)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = s.Exec(ctx, `UPDATE test_schema_versions SET locked = ? WHERE version = 0`, false)
	}()

	require.NoError(t, s.EnsureSchema(ctx, "test", testScripts))

	version, err := s.SchemaVersion(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestEnsureSchema_InvalidInput(t *testing.T) {
	ctx := context.Background()
	s := openEmpty(t)

	tests := []struct {
		name    string
		group   string
		scripts []string
	}{
		{name: "injection in group name", group: "x; DROP TABLE users", scripts: testScripts},
		{name: "upper case group", group: "System", scripts: testScripts},
		{name: "no scripts", group: "test", scripts: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, s.EnsureSchema(ctx, tt.group, tt.scripts))
		})
	}
}

func TestMigrations(t *testing.T) {
	scripts := Migrations()
	require.NotEmpty(t, scripts)
	assert.Contains(t, scripts[0], "CREATE TABLE users")
}

func TestLoadMigrations(t *testing.T) {
	tests := []struct {
		fsys    fstest.MapFS
		name    string
		want    int
		wantErr bool
	}{
		{
			name: "contiguous",
			fsys: fstest.MapFS{
				"m/0000_a.sql": {Data: []byte("a")},
				"m/0001_b.sql": {Data: []byte("b")},
			},
			want: 2,
		},
		{
			name: "gap",
			fsys: fstest.MapFS{
				"m/0000_a.sql": {Data: []byte("a")},
				"m/0002_c.sql": {Data: []byte("c")},
			},
			wantErr: true,
		},
		{
			name: "bad name",
			fsys: fstest.MapFS{
				"m/first.sql": {Data: []byte("a")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scripts, err := loadMigrations(tt.fsys, "m")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, scripts, tt.want)
		})
	}
}
