package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/iudanet/authd/internal/server/handlers"
)

// errPanic stands in for the panic value in the response path, the value
// itself is only logged
var errPanic = errors.New("panic recovered")

// RecoveryMiddleware создает middleware для восстановления после паники
// Перехватывает panic, логирует стек вызовов и возвращает 500 с общим сообщением
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.ErrorContext(r.Context(), "Panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("stack", string(debug.Stack())),
				)

				// Возвращаем generic ошибку клиенту (не раскрываем детали)
				handlers.WriteError(slog.New(slog.DiscardHandler), w, r, errPanic)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
