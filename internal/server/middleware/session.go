package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/internal/server/handlers"
	"github.com/iudanet/authd/pkg/api"
)

// ErrInvalidCSRF is returned when a state changing request has a missing or
// wrong CSRF token
var ErrInvalidCSRF = fail.New("Invalid CSRFToken.  Please refresh and try again")

// SessionMiddleware загружает сессию из заголовка Authorization: Bearer <id>.
// Запрос без сессии проходит дальше, RequireSession отклоняет его там,
// где сессия нужна.
//
// Для запросов с сессией:
//   - GET/HEAD/OPTIONS получают текущий CSRF токен в заголовке X-CSRFToken,
//     устаревший токен перевыпускается
//   - остальные методы должны прислать этот токен в X-CSRFToken
func SessionMiddleware(logger *slog.Logger, svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			w.Header().Set("Access-Control-Expose-Headers", api.CSRFHeader)

			id, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			session, err := svc.GetSession(ctx, id)
			if err != nil {
				handlers.WriteError(logger, w, r, err)
				return
			}
			if session == nil {
				logger.DebugContext(ctx, "request with unknown or expired session")
				next.ServeHTTP(w, r)
				return
			}

			if isSafeMethod(r.Method) {
				if _, err := session.RefreshCSRF(ctx); err != nil {
					handlers.WriteError(logger, w, r, err)
					return
				}
				w.Header().Set(api.CSRFHeader, session.CSRFToken)
			} else {
				token := r.Header.Get(api.CSRFHeader)
				if subtle.ConstantTimeCompare([]byte(token), []byte(session.CSRFToken)) != 1 {
					logger.WarnContext(ctx, "invalid CSRF token",
						slog.String("username", session.Username),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path))
					handlers.WriteError(logger, w, r, ErrInvalidCSRF)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(handlers.WithSession(ctx, session)))
		})
	}
}

// RequireSession отклоняет запросы без действующей сессии с 401
func RequireSession(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if handlers.GetSession(r.Context()) == nil {
				handlers.WriteError(logger, w, r, fail.Unauthorized(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает id сессии из заголовка Authorization
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	// Ожидаем формат: "Bearer <token>"
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
