package models

import "time"

// User представляет пользователя в системе
type User struct {
	StartDate   time.Time  `json:"start_date"`         // с какого момента учетная запись активна
	CreatedDate time.Time  `json:"created_date"`       // время создания
	UpdatedDate time.Time  `json:"updated_date"`       // время последнего обновления
	EndDate     *time.Time `json:"end_date,omitempty"` // nil - без ограничения
	Username    string     `json:"username"`           // уникальный username, не меняется
	CreatedBy   string     `json:"created_by"`
	UpdatedBy   string     `json:"updated_by"`
	Version     int        `json:"version"` // счетчик для optimistic concurrency
	Admin       bool       `json:"admin"`
}

// Active reports whether the account is usable at the given moment:
// StartDate <= at < EndDate
func (u *User) Active(at time.Time) bool {
	if at.Before(u.StartDate) {
		return false
	}
	if u.EndDate != nil && !at.Before(*u.EndDate) {
		return false
	}
	return true
}

// Password - текущий пароль пользователя, одна запись на пользователя
type Password struct {
	CreatedDate time.Time
	UpdatedDate time.Time
	Expiration  *time.Time // nil - пароль не истекает
	SessionID   *string    // сессия, в которой пароль был установлен
	Username    string
	Hash        string
	CreatedBy   string
	UpdatedBy   string
	Version     int
	HashVersion int // индекс в crypto.Versions
}

// PasswordHistory - архивная запись предыдущего пароля
type PasswordHistory struct {
	CreatedDate time.Time
	SessionID   *string
	Username    string
	Hash        string
	CreatedBy   string
	Version     int
	HashVersion int
}

// Session представляет сессию пользователя
type Session struct {
	CSRFDate    time.Time `json:"csrf_date"`
	Expires     time.Time `json:"expires"`
	CreatedDate time.Time `json:"created_date"`
	UserAgent   *string   `json:"user_agent,omitempty"`
	ID          string    `json:"-"` // 256 бит случайных данных
	Username    string    `json:"username"`
	CSRFToken   string    `json:"-"`
	IPAddress   string    `json:"ip_address"`
	Valid       bool      `json:"valid"`
}

// Usable reports whether the session can still authenticate a request
func (s *Session) Usable(at time.Time) bool {
	return s.Valid && at.Before(s.Expires)
}

// Setting - значение настройки, отличное от значения по умолчанию
type Setting struct {
	UpdatedDate time.Time
	ID          string // например "password.minLength"
	Value       string
	UpdatedBy   string
}
