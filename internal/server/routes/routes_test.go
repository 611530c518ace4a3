package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/internal/server/auth/authtest"
	"github.com/iudanet/authd/internal/server/metrics"
	"github.com/iudanet/authd/internal/server/middleware"
	"github.com/iudanet/authd/pkg/api"
)

type testServer struct {
	router  http.Handler
	metrics *metrics.Metrics
	env     *authtest.Env
}

func newTestServer(t *testing.T, loginRate int) *testServer {
	t.Helper()
	env := authtest.New(t)

	limiter := middleware.NewRateLimiter(loginRate, time.Minute, env.Logger)
	t.Cleanup(limiter.Stop)

	m := metrics.New()
	router := NewRouter(Options{
		Logger:       env.Logger,
		Service:      env.Service,
		Metrics:      m,
		LoginLimiter: limiter,
		Version:      "test",
	})
	return &testServer{router: router, metrics: m, env: env}
}

// client хранит сессию и CSRF токен между запросами
type client struct {
	t         *testing.T
	srv       *testServer
	sessionID string
	csrf      string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:4000"
	if c.sessionID != "" {
		req.Header.Set("Authorization", "Bearer "+c.sessionID)
	}
	if c.csrf != "" {
		req.Header.Set(api.CSRFHeader, c.csrf)
	}

	w := httptest.NewRecorder()
	c.srv.router.ServeHTTP(w, req)

	if token := w.Header().Get(api.CSRFHeader); token != "" {
		c.csrf = token
	}
	return w
}

func (c *client) login(username, password string) *httptest.ResponseRecorder {
	c.t.Helper()
	w := c.do(http.MethodPost, "/v1/sessions/password", api.LoginRequest{Username: username, Password: password})
	if w.Code == http.StatusCreated {
		var resp api.LoginResponse
		require.NoError(c.t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&resp))
		c.sessionID = resp.SessionID
		c.csrf = resp.CSRFToken
	}
	return w
}

func TestRouter_SessionFlow(t *testing.T) {
	srv := newTestServer(t, 100)
	admin := &client{t: t, srv: srv}

	require.Equal(t, http.StatusCreated, admin.login(auth.AdminUsername, authtest.AdminPassword).Code)

	w := admin.do(http.MethodGet, "/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&me))
	assert.Equal(t, auth.AdminUsername, me.Username)
	assert.True(t, me.Admin)

	w = admin.do(http.MethodPost, "/v1/users", api.CreateUserRequest{Username: "alice", Password: "alice-password-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = admin.do(http.MethodGet, "/v1/admin/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&users))
	assert.Len(t, users, 2)

	alice := &client{t: t, srv: srv}
	require.Equal(t, http.StatusCreated, alice.login("alice", "alice-password-1").Code)

	w = alice.do(http.MethodGet, "/v1/admin/users", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = alice.do(http.MethodPut, "/v1/users/alice/password",
		api.SetPasswordRequest{NewPassword: "alice-password-2", OldPassword: "alice-password-1"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = alice.do(http.MethodGet, "/v1/users/alice/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = alice.do(http.MethodDelete, "/v1/sessions", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// сессия больше не работает
	w = alice.do(http.MethodGet, "/v1/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expected := `
# HELP authd_logins_total Password login attempts by result.
# TYPE authd_logins_total counter
authd_logins_total{result="success"} 2
# HELP authd_logouts_total Sessions ended by logout.
# TYPE authd_logouts_total counter
authd_logouts_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(srv.metrics.Registry(), strings.NewReader(expected),
		"authd_logins_total", "authd_logouts_total"))
}

func TestRouter_RequiresSession(t *testing.T) {
	srv := newTestServer(t, 100)
	anon := &client{t: t, srv: srv}

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/sessions"},
		{http.MethodDelete, "/v1/sessions"},
		{http.MethodGet, "/v1/users"},
		{http.MethodPost, "/v1/users"},
		{http.MethodGet, "/v1/users/admin"},
		{http.MethodPut, "/v1/users/admin"},
		{http.MethodPut, "/v1/users/admin/password"},
		{http.MethodGet, "/v1/users/admin/sessions"},
		{http.MethodGet, "/v1/admin/users"},
		{http.MethodPut, "/v1/password"},
		{http.MethodGet, "/v1/settings"},
		{http.MethodPut, "/v1/settings"},
		{http.MethodDelete, "/v1/settings"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := anon.do(p.method, p.path, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_CSRF(t *testing.T) {
	srv := newTestServer(t, 100)
	admin := &client{t: t, srv: srv}
	require.Equal(t, http.StatusCreated, admin.login(auth.AdminUsername, authtest.AdminPassword).Code)

	token := admin.csrf
	admin.csrf = ""
	w := admin.do(http.MethodPut, "/v1/password", api.PasswordTestRequest{Password: "correct horse battery"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid CSRFToken")

	admin.csrf = token
	w = admin.do(http.MethodPut, "/v1/password", api.PasswordTestRequest{Password: "correct horse battery"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = admin.do(http.MethodGet, "/v1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, token, w.Header().Get(api.CSRFHeader))
	assert.Equal(t, api.CSRFHeader, w.Header().Get("Access-Control-Expose-Headers"))
}

func TestRouter_LoginRateLimit(t *testing.T) {
	srv := newTestServer(t, 3)
	anon := &client{t: t, srv: srv}

	for i := 0; i < 3; i++ {
		w := anon.login(auth.AdminUsername, "wrong-password")
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	w := anon.login(auth.AdminUsername, authtest.AdminPassword)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	expected := `
# HELP authd_logins_total Password login attempts by result.
# TYPE authd_logins_total counter
authd_logins_total{result="failure"} 3
authd_logins_total{result="rate_limited"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(srv.metrics.Registry(), strings.NewReader(expected),
		"authd_logins_total"))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, 100)
	anon := &client{t: t, srv: srv}

	w := anon.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up","version":"test"}`, w.Body.String())

	anon.login(auth.AdminUsername, authtest.AdminPassword)

	w = anon.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "authd_http_requests_total")
	assert.Contains(t, body, `route="/v1/sessions/password"`)
	assert.Contains(t, body, `route="/health"`)
}

func TestRouter_NotFound(t *testing.T) {
	srv := newTestServer(t, 100)
	anon := &client{t: t, srv: srv}

	w := anon.do(http.MethodGet, "/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Not Found"}`, w.Body.String())

	w = anon.do(http.MethodPatch, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/json"))
}
