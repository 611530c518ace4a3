// Package settings holds the admin tunable security policy.
//
// Every setting is declared once in Registry with its type, default and
// bounds. A setting without a stored row uses its default.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/storage"
	"github.com/iudanet/authd/internal/validation"
)

// Setting is one entry of the registry
type Setting interface {
	// Key is the dotted id, e.g. "password.minLength"
	Key() string
	// Encode checks value and returns its stored form
	Encode(value any) (string, error)
	// DefaultValue is used when nothing is stored
	DefaultValue() any
	// Decode converts a stored value, falling back to the default when it
	// cannot be parsed
	Decode(stored string) any
}

// Int is an integer setting with optional bounds
type Int struct {
	Min     *int
	Max     *int
	ID      string
	Default int
}

// Bool is a boolean setting
type Bool struct {
	ID      string
	Default bool
}

func bound(v int) *int { return &v }

// Registry - полный список настроек
var (
	PasswordMinLength = Int{ID: "password.minLength", Default: 10, Min: bound(8)}
	// PasswordBadCheck - проверять ли новые пароли по списку известных плохих паролей
	PasswordBadCheck         = Bool{ID: "password.badCheck", Default: true}
	PasswordRequireSpecial   = Bool{ID: "password.requireSpecial", Default: false}
	PasswordRequireNumber    = Bool{ID: "password.requireNumber", Default: false}
	PasswordRequireMixedCase = Bool{ID: "password.requireMixedCase", Default: false}
	// PasswordReuseCheck - сколько предыдущих паролей проверять, не считая текущего
	PasswordReuseCheck = Int{ID: "password.reuseCheck", Default: 1, Min: bound(0)}
	// PasswordExpirationDays - 0 значит пароль не истекает
	PasswordExpirationDays = Int{ID: "password.expirationDays", Default: 0, Min: bound(0)}
	SessionExpirationDays  = Int{ID: "session.expirationDays", Default: 90, Min: bound(0), Max: bound(365)}
	// SessionCSRFAgeMinutes - через сколько минут CSRF токен выпускается заново
	SessionCSRFAgeMinutes = Int{ID: "session.csrfAgeMinutes", Default: 15, Min: bound(0)}

	Registry = []Setting{
		PasswordMinLength,
		PasswordBadCheck,
		PasswordRequireSpecial,
		PasswordRequireNumber,
		PasswordRequireMixedCase,
		PasswordReuseCheck,
		PasswordExpirationDays,
		SessionExpirationDays,
		SessionCSRFAgeMinutes,
	}
)

// Lookup finds a setting by id
func Lookup(id string) (Setting, error) {
	for _, s := range Registry {
		if s.Key() == id {
			return s, nil
		}
	}
	return nil, fail.NotFound(fmt.Sprintf("No setting found with an id of %s", id))
}

// Key implements Setting
func (s Int) Key() string { return s.ID }

// DefaultValue implements Setting
func (s Int) DefaultValue() any { return s.Default }

// Decode implements Setting
func (s Int) Decode(stored string) any {
	v, err := strconv.Atoi(stored)
	if err != nil {
		return s.Default
	}
	return v
}

// Encode implements Setting. JSON numbers arrive as float64.
func (s Int) Encode(value any) (string, error) {
	var v int
	switch n := value.(type) {
	case int:
		v = n
	case int64:
		if n > math.MaxInt32 || n < math.MinInt32 {
			return "", fail.Newf("%s is out of range", s.ID)
		}
		v = int(n)
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return "", fail.Newf("%s must be a whole number", s.ID)
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return "", fail.Newf("%s is out of range", s.ID)
		}
		v = int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return "", fail.Newf("%s must be a whole number", s.ID)
		}
		if i > math.MaxInt32 || i < math.MinInt32 {
			return "", fail.Newf("%s is out of range", s.ID)
		}
		v = int(i)
	default:
		return "", fail.Newf("Invalid setting type: %v is not a number", value)
	}

	if s.Min != nil && v < *s.Min {
		return "", fail.Newf("%s must be greater than %d", s.ID, *s.Min)
	}
	if s.Max != nil && v > *s.Max {
		return "", fail.Newf("%s must be less than %d", s.ID, *s.Max)
	}
	return strconv.Itoa(v), nil
}

// Key implements Setting
func (s Bool) Key() string { return s.ID }

// DefaultValue implements Setting
func (s Bool) DefaultValue() any { return s.Default }

// Decode implements Setting
func (s Bool) Decode(stored string) any {
	return stored == "true"
}

// Encode implements Setting
func (s Bool) Encode(value any) (string, error) {
	b, ok := value.(bool)
	if !ok {
		return "", fail.Newf("Invalid setting type: %v is not a boolean", value)
	}
	return strconv.FormatBool(b), nil
}

// Service reads and writes settings. It does no authorization, callers
// check that the caller is an admin.
type Service struct {
	store storage.SettingStorage
	now   func() time.Time
}

// New creates a settings service
func New(store storage.SettingStorage) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) raw(ctx context.Context, id string) (string, bool, error) {
	v, err := s.store.GetSetting(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrSettingNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Int returns the current value of an integer setting
func (s *Service) Int(ctx context.Context, setting Int) (int, error) {
	v, ok, err := s.raw(ctx, setting.ID)
	if err != nil || !ok {
		return setting.Default, err
	}
	return setting.Decode(v).(int), nil
}

// Bool returns the current value of a boolean setting
func (s *Service) Bool(ctx context.Context, setting Bool) (bool, error) {
	v, ok, err := s.raw(ctx, setting.ID)
	if err != nil || !ok {
		return setting.Default, err
	}
	return setting.Decode(v).(bool), nil
}

// Get returns the current value of any registered setting
func (s *Service) Get(ctx context.Context, id string) (any, error) {
	setting, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	v, ok, err := s.raw(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return setting.DefaultValue(), nil
	}
	return setting.Decode(v), nil
}

// All returns the current value of every registered setting
func (s *Service) All(ctx context.Context) (map[string]any, error) {
	values := make(map[string]any, len(Registry))
	for _, setting := range Registry {
		v, err := s.Get(ctx, setting.Key())
		if err != nil {
			return nil, err
		}
		values[setting.Key()] = v
	}
	return values, nil
}

// Set validates and stores value for id
func (s *Service) Set(ctx context.Context, updatedBy, id string, value any) error {
	setting, err := Lookup(id)
	if err != nil {
		return err
	}

	encoded, err := setting.Encode(value)
	if err != nil {
		return err
	}

	return s.store.PutSetting(ctx, &models.Setting{
		ID:          id,
		Value:       encoded,
		UpdatedBy:   updatedBy,
		UpdatedDate: s.now(),
	})
}

// Reset removes the stored value of id, its default applies again
func (s *Service) Reset(ctx context.Context, id string) error {
	if _, err := Lookup(id); err != nil {
		return err
	}
	return s.store.DeleteSetting(ctx, id)
}

// PasswordPolicy reads the password strength settings
func (s *Service) PasswordPolicy(ctx context.Context) (validation.PasswordPolicy, error) {
	var (
		p   validation.PasswordPolicy
		err error
	)

	if p.MinLength, err = s.Int(ctx, PasswordMinLength); err != nil {
		return p, err
	}
	if p.BadCheck, err = s.Bool(ctx, PasswordBadCheck); err != nil {
		return p, err
	}
	if p.RequireSpecial, err = s.Bool(ctx, PasswordRequireSpecial); err != nil {
		return p, err
	}
	if p.RequireNumber, err = s.Bool(ctx, PasswordRequireNumber); err != nil {
		return p, err
	}
	if p.RequireMixedCase, err = s.Bool(ctx, PasswordRequireMixedCase); err != nil {
		return p, err
	}

	return p, nil
}
