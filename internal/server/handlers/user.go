package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/pkg/api"
)

// UserHandler обрабатывает запросы к пользователям
type UserHandler struct {
	logger *slog.Logger
	svc    *auth.Service
}

// NewUserHandler создает новый handler для пользователей
func NewUserHandler(logger *slog.Logger, svc *auth.Service) *UserHandler {
	return &UserHandler{
		logger: logger,
		svc:    svc,
	}
}

// Create обрабатывает POST /v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateUserRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	user, err := h.svc.CreateUser(ctx, GetSession(ctx), req.Username, req.Password, req.Admin)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	sendJSON(h.logger, w, user.User, http.StatusCreated)
}

// Get обрабатывает GET /v1/users и GET /v1/users/{username}
// Без username возвращает текущего пользователя
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.svc.GetUser(ctx, GetSession(ctx), chi.URLParam(r, "username"))
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	sendJSON(h.logger, w, user.User, http.StatusOK)
}

// List обрабатывает GET /v1/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.svc.ListUsers(ctx, GetSession(ctx))
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	sendJSON(h.logger, w, users, http.StatusOK)
}

// Update обрабатывает PUT /v1/users/{username}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := GetSession(ctx)

	var req api.UpdateUserRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	user, err := h.svc.GetUser(ctx, caller, chi.URLParam(r, "username"))
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	err = user.Update(ctx, caller, auth.UserUpdates{
		Version:      *req.Version,
		Admin:        req.Admin,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		ClearEndDate: req.ClearEndDate,
	})
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	sendJSON(h.logger, w, user.User, http.StatusOK)
}

// SetPassword обрабатывает PUT /v1/users/{username}/password
func (h *UserHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := GetSession(ctx)

	var req api.SetPasswordRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	user, err := h.svc.GetUser(ctx, caller, chi.URLParam(r, "username"))
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	if err := user.SetPassword(ctx, caller, req.NewPassword, req.OldPassword); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestPassword обрабатывает PUT /v1/password
// Проверяет пароль по текущей политике без сохранения
func (h *UserHandler) TestPassword(w http.ResponseWriter, r *http.Request) {
	var req api.PasswordTestRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	if err := h.svc.ValidatePassword(r.Context(), req.Password); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
