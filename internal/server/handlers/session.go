package handlers

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/internal/server/metrics"
	"github.com/iudanet/authd/pkg/api"
)

// AuthMetrics считает входы и выходы
type AuthMetrics interface {
	Login(result string)
	Logout()
}

type noopMetrics struct{}

func (noopMetrics) Login(string) {}
func (noopMetrics) Logout()      {}

// SessionHandler обрабатывает вход, выход и просмотр сессий
type SessionHandler struct {
	logger  *slog.Logger
	svc     *auth.Service
	metrics AuthMetrics
}

// NewSessionHandler создает новый handler для сессий. m может быть nil
func NewSessionHandler(logger *slog.Logger, svc *auth.Service, m AuthMetrics) *SessionHandler {
	if m == nil {
		m = noopMetrics{}
	}
	return &SessionHandler{
		logger:  logger,
		svc:     svc,
		metrics: m,
	}
}

// Login обрабатывает POST /v1/sessions/password
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	var userAgent *string
	if ua := r.UserAgent(); ua != "" {
		userAgent = &ua
	}

	session, err := h.svc.Login(ctx, req.Username, req.Password, req.RememberMe, clientIP(r), userAgent)
	if err != nil {
		if _, ok := fail.As(err); ok {
			h.metrics.Login(metrics.LoginFailure)
			h.logger.WarnContext(ctx, "login failed",
				slog.String("username", req.Username),
				slog.Any("error", err))
		}
		WriteError(h.logger, w, r, err)
		return
	}
	h.metrics.Login(metrics.LoginSuccess)

	w.Header().Set(api.CSRFHeader, session.CSRFToken)
	sendJSON(h.logger, w, api.LoginResponse{
		SessionID: session.ID,
		CSRFToken: session.CSRFToken,
		Username:  session.Username,
		Expires:   session.Expires,
	}, http.StatusCreated)
}

// Get обрабатывает GET /v1/sessions
// Возвращает текущую сессию
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	if session == nil {
		WriteError(h.logger, w, r, fail.NotFound("No valid session found"))
		return
	}
	sendJSON(h.logger, w, session.Session, http.StatusOK)
}

// Logout обрабатывает DELETE /v1/sessions
// Без id в теле завершает текущую сессию
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LogoutRequest
	if err := decodeOptional(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	if err := h.svc.LogoutSession(ctx, GetSession(ctx), req.ID); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	h.metrics.Logout()

	w.WriteHeader(http.StatusNoContent)
}

// History обрабатывает GET /v1/users/{username}/sessions
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.svc.SessionHistory(ctx, GetSession(ctx), chi.URLParam(r, "username"))
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	sendJSON(h.logger, w, sessions, http.StatusOK)
}

// clientIP returns the host part of RemoteAddr. RealIP middleware has already
// replaced it with the forwarded address when there is one.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
