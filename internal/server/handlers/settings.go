package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/pkg/api"
)

// SettingsHandler обрабатывает запросы к настройкам
type SettingsHandler struct {
	logger *slog.Logger
	svc    *auth.Service
}

// NewSettingsHandler создает новый handler для настроек
func NewSettingsHandler(logger *slog.Logger, svc *auth.Service) *SettingsHandler {
	return &SettingsHandler{
		logger: logger,
		svc:    svc,
	}
}

// List обрабатывает GET /v1/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	values, err := h.svc.AllSettings(ctx, GetSession(ctx))
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	sendJSON(h.logger, w, values, http.StatusOK)
}

// Set обрабатывает PUT /v1/settings
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SettingRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	if req.Value == nil {
		WriteError(h.logger, w, r, fail.New("value is required"))
		return
	}

	if err := h.svc.SetSetting(ctx, GetSession(ctx), req.ID, req.Value); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reset обрабатывает DELETE /v1/settings
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.DeleteSettingRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	if err := h.svc.ResetSetting(ctx, GetSession(ctx), req.ID); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
