package validation

import (
	"regexp"

	"github.com/iudanet/authd/internal/fail"
)

// UsernamePattern определяет допустимый формат username
// Только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
)

// ValidateUsername проверяет, что username соответствует требованиям.
// Ошибки возвращаются как *fail.Failure (400), их можно показать клиенту.
func ValidateUsername(username string) error {
	if username == "" {
		return fail.New("A username is required")
	}

	if len(username) < MinUsernameLen {
		return fail.Newf("Usernames must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fail.Newf("Usernames must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fail.New("Usernames can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}

	return nil
}
