package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/authd/internal/server/settings"
	"github.com/iudanet/authd/pkg/api"
)

func TestSettingsHandler(t *testing.T) {
	env := newTestEnv(t)
	env.CreateUser(t, "bob", "bob-password-1", false)
	bob := env.Login(t, "bob", "bob-password-1")
	handler := NewSettingsHandler(setupTestLogger(), env.Service)

	list := func(t *testing.T) map[string]any {
		t.Helper()
		req := newRequest(t, http.MethodGet, "/v1/settings", nil, env.Admin, nil)
		w := httptest.NewRecorder()
		handler.List(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var values map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&values))
		return values
	}

	t.Run("defaults", func(t *testing.T) {
		values := list(t)
		assert.Len(t, values, len(settings.Registry))
		assert.InDelta(t, 10, values[settings.PasswordMinLength.ID], 0)
		assert.Equal(t, true, values[settings.PasswordBadCheck.ID])
	})

	t.Run("set int", func(t *testing.T) {
		req := newRequest(t, http.MethodPut, "/v1/settings", `{"id":"password.minLength","value":12}`, env.Admin, nil)
		w := httptest.NewRecorder()
		handler.Set(w, req)

		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
		assert.InDelta(t, 12, list(t)[settings.PasswordMinLength.ID], 0)
	})

	t.Run("set bool", func(t *testing.T) {
		req := newRequest(t, http.MethodPut, "/v1/settings",
			api.SettingRequest{ID: settings.PasswordRequireNumber.ID, Value: true}, env.Admin, nil)
		w := httptest.NewRecorder()
		handler.Set(w, req)

		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
		assert.Equal(t, true, list(t)[settings.PasswordRequireNumber.ID])
	})

	t.Run("reset", func(t *testing.T) {
		req := newRequest(t, http.MethodDelete, "/v1/settings",
			api.DeleteSettingRequest{ID: settings.PasswordMinLength.ID}, env.Admin, nil)
		w := httptest.NewRecorder()
		handler.Reset(w, req)

		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
		assert.InDelta(t, 10, list(t)[settings.PasswordMinLength.ID], 0)
	})

	errorCases := []struct {
		name           string
		method         string
		body           string
		expectedError  string
		expectedStatus int
		asUser         bool
	}{
		{
			name:           "value below minimum",
			method:         http.MethodPut,
			body:           `{"id":"password.minLength","value":4}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "password.minLength must be greater than 8",
		},
		{
			name:           "fractional value",
			method:         http.MethodPut,
			body:           `{"id":"password.minLength","value":10.5}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "password.minLength must be a whole number",
		},
		{
			name:           "unknown setting",
			method:         http.MethodPut,
			body:           `{"id":"password.colour","value":1}`,
			expectedStatus: http.StatusNotFound,
			expectedError:  "No setting found with an id of password.colour",
		},
		{
			name:           "missing value",
			method:         http.MethodPut,
			body:           `{"id":"password.minLength"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "value is required",
		},
		{
			name:           "non-admin update",
			method:         http.MethodPut,
			body:           `{"id":"password.minLength","value":12}`,
			asUser:         true,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Only admins can update settings",
		},
		{
			name:           "non-admin reset",
			method:         http.MethodDelete,
			body:           `{"id":"password.minLength"}`,
			asUser:         true,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Only admins can update settings",
		},
		{
			name:           "non-admin list",
			method:         http.MethodGet,
			asUser:         true,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Only admins can view settings",
		},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			caller := env.Admin
			if tt.asUser {
				caller = bob
			}

			var body any
			if tt.body != "" {
				body = tt.body
			}
			req := newRequest(t, tt.method, "/v1/settings", body, caller, nil)
			w := httptest.NewRecorder()

			switch tt.method {
			case http.MethodGet:
				handler.List(w, req)
			case http.MethodPut:
				handler.Set(w, req)
			case http.MethodDelete:
				handler.Reset(w, req)
			}

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.expectedError, decodeError(t, w))
		})
	}
}
