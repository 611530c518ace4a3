// Package api - HTTP клиент authd
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/pkg/api"
)

// Error - ответ сервера со статусом вне 2xx
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// IsStatus reports whether err is a server error with the given status
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client представляет HTTP клиент для взаимодействия с сервером.
// Хранит bearer сессию и последний CSRF токен, который прислал сервер
type Client struct {
	httpClient *http.Client
	baseURL    string
	sessionID  string
	csrfToken  string
	mu         sync.RWMutex
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// BaseURL returns the server URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetSession задает сессию, сохраненную после прошлого login
func (c *Client) SetSession(sessionID, csrfToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.csrfToken = csrfToken
}

// Session returns the current session id and CSRF token
func (c *Client) Session() (sessionID, csrfToken string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID, c.csrfToken
}

// Login выполняет вход по паролю и запоминает сессию
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	var resp api.LoginResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/sessions/password", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	c.SetSession(resp.SessionID, resp.CSRFToken)
	return &resp, nil
}

// Logout завершает текущую сессию и забывает ее
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/v1/sessions", nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	c.SetSession("", "")
	return nil
}

// CurrentSession получает текущую сессию. Заодно обновляет CSRF токен
func (c *Client) CurrentSession(ctx context.Context) (*models.Session, error) {
	var session models.Session
	if err := c.doRequest(ctx, http.MethodGet, "/v1/sessions", nil, &session); err != nil {
		return nil, fmt.Errorf("get session request failed: %w", err)
	}
	return &session, nil
}

// SessionHistory возвращает сессии пользователя, новые первыми
func (c *Client) SessionHistory(ctx context.Context, username string) ([]models.Session, error) {
	var sessions []models.Session
	path := "/v1/users/" + url.PathEscape(username) + "/sessions"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &sessions); err != nil {
		return nil, fmt.Errorf("session history request failed: %w", err)
	}
	return sessions, nil
}

// GetUser получает пользователя. Пустой username - текущий пользователь
func (c *Client) GetUser(ctx context.Context, username string) (*models.User, error) {
	path := "/v1/users"
	if username != "" {
		path += "/" + url.PathEscape(username)
	}

	var user models.User
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, fmt.Errorf("get user request failed: %w", err)
	}
	return &user, nil
}

// ListUsers возвращает всех пользователей, только для admin
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.doRequest(ctx, http.MethodGet, "/v1/admin/users", nil, &users); err != nil {
		return nil, fmt.Errorf("list users request failed: %w", err)
	}
	return users, nil
}

// CreateUser создает пользователя с временным паролем
func (c *Client) CreateUser(ctx context.Context, req api.CreateUserRequest) (*models.User, error) {
	var user models.User
	if err := c.doRequest(ctx, http.MethodPost, "/v1/users", req, &user); err != nil {
		return nil, fmt.Errorf("create user request failed: %w", err)
	}
	return &user, nil
}

// UpdateUser изменяет пользователя
func (c *Client) UpdateUser(ctx context.Context, username string, req api.UpdateUserRequest) (*models.User, error) {
	var user models.User
	path := "/v1/users/" + url.PathEscape(username)
	if err := c.doRequest(ctx, http.MethodPut, path, req, &user); err != nil {
		return nil, fmt.Errorf("update user request failed: %w", err)
	}
	return &user, nil
}

// SetPassword меняет пароль пользователя
func (c *Client) SetPassword(ctx context.Context, username string, req api.SetPasswordRequest) error {
	path := "/v1/users/" + url.PathEscape(username) + "/password"
	if err := c.doRequest(ctx, http.MethodPut, path, req, nil); err != nil {
		return fmt.Errorf("set password request failed: %w", err)
	}
	return nil
}

// TestPassword проверяет пароль по политике сервера
func (c *Client) TestPassword(ctx context.Context, password string) error {
	req := api.PasswordTestRequest{Password: password}
	if err := c.doRequest(ctx, http.MethodPut, "/v1/password", req, nil); err != nil {
		return fmt.Errorf("password test request failed: %w", err)
	}
	return nil
}

// Settings возвращает все настройки
func (c *Client) Settings(ctx context.Context) (map[string]any, error) {
	var values map[string]any
	if err := c.doRequest(ctx, http.MethodGet, "/v1/settings", nil, &values); err != nil {
		return nil, fmt.Errorf("settings request failed: %w", err)
	}
	return values, nil
}

// SetSetting задает значение настройки
func (c *Client) SetSetting(ctx context.Context, id string, value any) error {
	req := api.SettingRequest{ID: id, Value: value}
	if err := c.doRequest(ctx, http.MethodPut, "/v1/settings", req, nil); err != nil {
		return fmt.Errorf("set setting request failed: %w", err)
	}
	return nil
}

// ResetSetting возвращает настройке значение по умолчанию
func (c *Client) ResetSetting(ctx context.Context, id string) error {
	req := api.DeleteSettingRequest{ID: id}
	if err := c.doRequest(ctx, http.MethodDelete, "/v1/settings", req, nil); err != nil {
		return fmt.Errorf("reset setting request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос. Если сервер отклонил устаревший CSRF
// токен, токен обновляется через GET /v1/sessions и запрос повторяется один раз
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	err := c.send(ctx, method, path, body, result)
	if err == nil || method == http.MethodGet || !isCSRFError(err) {
		return err
	}
	if err := c.send(ctx, http.MethodGet, "/v1/sessions", nil, nil); err != nil {
		return fmt.Errorf("failed to refresh csrf token: %w", err)
	}
	return c.send(ctx, method, path, body, result)
}

func isCSRFError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) &&
		apiErr.Status == http.StatusBadRequest &&
		strings.HasPrefix(apiErr.Message, "Invalid CSRFToken")
}

func (c *Client) send(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	sessionID, csrfToken := c.Session()
	if sessionID != "" {
		req.Header.Set("Authorization", "Bearer "+sessionID)
	}
	if csrfToken != "" {
		req.Header.Set(api.CSRFHeader, csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// сервер присылает новый токен на GET запросах
	if token := resp.Header.Get(api.CSRFHeader); token != "" {
		c.mu.Lock()
		c.csrfToken = token
		c.mu.Unlock()
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return &Error{Status: resp.StatusCode, Message: errResp.Message}
		}
		return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
