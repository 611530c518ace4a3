package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/authd/internal/config"
	"github.com/iudanet/authd/internal/iocli"
	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/internal/server/auth/authtest"
	"github.com/iudanet/authd/pkg/api"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
	assert.Contains(t, out, "Git Commit: unknown")
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("DB_PATH", "")
	dbPath := filepath.Join(t.TempDir(), "nested", "authd.db")

	out, err := execute(t, "migrate", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Regexp(t, `^system schema version \d+\n$`, out)

	// повторный запуск ничего не меняет
	again, err := execute(t, "migrate", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestResetPasswordCommand_Args(t *testing.T) {
	_, err := execute(t, "reset-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	assert.Error(t, err)
}

func TestResetPassword(t *testing.T) {
	tests := []struct {
		name     string
		username string
		input    string
		wantErr  string
	}{
		{
			name:     "success",
			username: auth.AdminUsername,
			input:    "Reset-Pass-12345\nReset-Pass-12345\n",
		},
		{
			name:     "confirmation mismatch",
			username: auth.AdminUsername,
			input:    "Reset-Pass-12345\nReset-Pass-54321\n",
			wantErr:  "passwords do not match",
		},
		{
			name:     "weak password",
			username: auth.AdminUsername,
			input:    "short\nshort\n",
			wantErr:  "Passwords must be at least 10 characters long",
		},
		{
			name:     "unknown user",
			username: "ghost",
			input:    "Reset-Pass-12345\nReset-Pass-12345\n",
			wantErr:  "No password found for user ghost",
		},
		{
			name:     "no input",
			username: auth.AdminUsername,
			input:    "",
			wantErr:  "EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := authtest.New(t)
			var out bytes.Buffer

			err := resetPassword(context.Background(), iocli.New(strings.NewReader(tt.input), &out), env.Service, tt.username)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), "Password for admin has been reset")

			// старая сессия завершена, новый пароль работает
			session, err := env.Service.GetSession(context.Background(), env.Admin.ID)
			require.NoError(t, err)
			assert.Nil(t, session)
			env.Login(t, auth.AdminUsername, "Reset-Pass-12345")
		})
	}
}

func TestRunServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            "0",
			LogLevel:        "error",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "authd.db")},
		Auth: config.AuthConfig{
			StartupPassword: authtest.AdminPassword,
			LoginRate:       10,
			LoginRateWindow: time.Minute,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	baseURL := fmt.Sprintf("http://%s", ln.Addr().String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, cfg, logger, ln, auth.WithHashVersions(authtest.HashVersions))
	}()

	client := &http.Client{Timeout: 5 * time.Second}

	require.Eventually(t, func() bool {
		resp, err := client.Get(baseURL + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	// admin создан до приема запросов
	body, err := json.Marshal(api.LoginRequest{Username: auth.AdminUsername, Password: authtest.AdminPassword})
	require.NoError(t, err)
	resp, err := client.Post(baseURL+"/v1/sessions/password", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
