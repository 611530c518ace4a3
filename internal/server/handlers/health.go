package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

//go:generate moq -out pinger_mock.go . Pinger

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	db      Pinger
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		db:      db,
		version: version,
	}
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
}

// Health обрабатывает GET /health
// Health check endpoint для мониторинга
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check failed", slog.Any("error", err))
		sendJSON(h.logger, w, HealthResponse{
			Status:   "unhealthy",
			Database: "down",
			Version:  h.version,
		}, http.StatusServiceUnavailable)
		return
	}

	sendJSON(h.logger, w, HealthResponse{
		Status:   "ok",
		Database: "up",
		Version:  h.version,
	}, http.StatusOK)
}
