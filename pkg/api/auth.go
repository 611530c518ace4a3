package api

import "time"

// CSRFHeader - заголовок, в котором сервер отдает и ожидает CSRF токен
const CSRFHeader = "X-CSRFToken"

// LoginRequest представляет запрос на вход по паролю
type LoginRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"` // сессия на session.expirationDays вместо суток
}

// LoginResponse возвращается после успешного входа.
// SessionID передается дальше в заголовке Authorization: Bearer <id>
type LoginResponse struct {
	Expires   time.Time `json:"expires"`
	SessionID string    `json:"session_id"`
	CSRFToken string    `json:"csrf_token"`
	Username  string    `json:"username"`
}

// LogoutRequest завершает сессию. Пустой ID - текущая сессия
type LogoutRequest struct {
	ID string `json:"id,omitempty"`
}

// CreateUserRequest представляет запрос на создание пользователя администратором
type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"` // временный пароль
	Admin    bool   `json:"admin"`
}

// UpdateUserRequest изменяет пользователя. Version - версия, которую видел клиент
type UpdateUserRequest struct {
	Version      *int       `json:"version" validate:"required,gte=0"`
	Admin        *bool      `json:"admin,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	ClearEndDate bool       `json:"clear_end_date,omitempty"`
}

// SetPasswordRequest меняет пароль пользователя
type SetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required"`
	OldPassword string `json:"old_password,omitempty"` // обязателен, если пароль меняет сам пользователь
}

// PasswordTestRequest проверяет пароль по текущей политике, ничего не сохраняя
type PasswordTestRequest struct {
	Password string `json:"password" validate:"required"`
}

// SettingRequest задает значение настройки
type SettingRequest struct {
	Value any    `json:"value"`
	ID    string `json:"id" validate:"required"`
}

// DeleteSettingRequest сбрасывает настройку к значению по умолчанию
type DeleteSettingRequest struct {
	ID string `json:"id" validate:"required"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Message string `json:"message"`
}
