package validation

import (
	_ "embed"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iudanet/authd/internal/fail"
)

// SpecialCharacters - символы, которые считаются специальными
const SpecialCharacters = " !\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

//go:embed bad_passwords.txt
var badPasswordList string

// badPasswords is the denylist, one lower case password per line
var badPasswords = func() map[string]struct{} {
	m := make(map[string]struct{})
	for line := range strings.Lines(badPasswordList) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m[strings.ToLower(line)] = struct{}{}
	}
	return m
}()

// IsBadPassword reports whether password is on the list of known bad passwords
func IsBadPassword(password string) bool {
	_, ok := badPasswords[strings.ToLower(password)]
	return ok
}

// PasswordPolicy - правила проверки сложности пароля.
// Значения берутся из настроек в момент проверки.
type PasswordPolicy struct {
	MinLength        int
	BadCheck         bool
	RequireSpecial   bool
	RequireNumber    bool
	RequireMixedCase bool
}

// Validate проверяет пароль и возвращает первое нарушенное правило в порядке:
// длина, список плохих паролей, спецсимвол, цифра, регистр.
// Ошибка всегда *fail.Failure с сообщением для пользователя.
func (p PasswordPolicy) Validate(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return fail.Newf("Passwords must be at least %d characters long", p.MinLength)
	}

	if p.BadCheck && IsBadPassword(password) {
		return fail.New("This password is too common and insecure, please choose another")
	}

	if !p.RequireSpecial && !p.RequireNumber && !p.RequireMixedCase {
		return nil
	}

	var special, number, upper, lower bool
	for _, c := range password {
		switch {
		case unicode.IsDigit(c):
			number = true
		case strings.ContainsRune(SpecialCharacters, c):
			special = true
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		}
	}

	if p.RequireSpecial && !special {
		return fail.New("The password must contain at least one special character")
	}
	if p.RequireNumber && !number {
		return fail.New("The password must contain at least one number")
	}
	if p.RequireMixedCase && (!upper || !lower) {
		return fail.New("The password must contain upper and lower case characters")
	}

	return nil
}
