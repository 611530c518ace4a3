package handlers

import (
	"context"

	"github.com/iudanet/authd/internal/server/auth"
)

// contextKey тип для ключей контекста
type contextKey string

// SessionKey ключ для хранения текущей сессии в контексте
const SessionKey contextKey = "session"

// WithSession кладет сессию в контекст запроса
func WithSession(ctx context.Context, session *auth.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// GetSession извлекает сессию из контекста запроса.
// Возвращает nil, если запрос без сессии
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(SessionKey).(*auth.Session)
	return session
}
