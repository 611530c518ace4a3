package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/internal/server/auth/authtest"
	"github.com/iudanet/authd/internal/server/routes"
)

// execute запускает authctl с args и stdin
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "authctl")
	assert.Contains(t, out, "Version:    dev")
}

func TestCommands_Args(t *testing.T) {
	db := filepath.Join(t.TempDir(), "authctl.db")

	tests := []struct {
		name string
		args []string
	}{
		{name: "users add without username", args: []string{"users", "add"}},
		{name: "settings set with one arg", args: []string{"settings", "set", "password.minLength"}},
		{name: "login with args", args: []string{"login", "admin"}},
		{name: "unknown command", args: []string{"frobnicate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", append(tt.args, "--db", db)...)
			assert.Error(t, err)
		})
	}
}

func TestCommands_Flow(t *testing.T) {
	env := authtest.New(t)
	server := httptest.NewServer(routes.NewRouter(routes.Options{
		Logger:  env.Logger,
		Service: env.Service,
		Version: "test",
	}))
	defer server.Close()

	db := filepath.Join(t.TempDir(), "authctl.db")

	out, err := execute(t, "", "status", "--db", db, "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Not authenticated")

	out, err = execute(t, authtest.AdminPassword+"\n",
		"login", "-u", auth.AdminUsername, "--db", db, "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")

	// сервер запомнен после login
	out, err = execute(t, "", "status", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Authenticated")
	assert.Contains(t, out, server.URL)

	out, err = execute(t, "carol-password-1\ncarol-password-1\n", "users", "add", "carol", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Username: carol")

	out, err = execute(t, "", "users", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "carol")

	_, err = execute(t, "", "settings", "set", "password.reuseCheck", "3", "--db", db)
	require.NoError(t, err)
	out, err = execute(t, "", "settings", "--db", db)
	require.NoError(t, err)
	assert.Regexp(t, `password\.reuseCheck\s+3`, out)

	out, err = execute(t, "", "logout", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Logout successful")

	_, err = execute(t, "", "users", "list", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
}
