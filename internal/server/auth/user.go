package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/authd/internal/crypto"
	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/storage"
	"github.com/iudanet/authd/internal/validation"
)

// bootstrapPasswordBits - длина случайного временного пароля администратора
const bootstrapPasswordBits = 96

// User is an account
type User struct {
	svc *Service
	models.User
}

// UserUpdates are the fields a caller may change. Version must be the
// version the caller read, nil fields are left as they are.
type UserUpdates struct {
	Admin        *bool
	StartDate    *time.Time
	EndDate      *time.Time
	Version      int
	ClearEndDate bool
}

func userNotFound(username string) error {
	return fail.NotFound(fmt.Sprintf("No user found with the username %s", username))
}

// CreateUser creates a user with a temporary password. Only admins can
// create users.
func (s *Service) CreateUser(ctx context.Context, caller *Session, username, tempPassword string, admin bool) (*User, error) {
	if err := s.requireAdmin(ctx, caller, "Only admins can create new users"); err != nil {
		return nil, err
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}

	now := s.clock()
	user := &User{
		svc: s,
		User: models.User{
			Username:    username,
			Admin:       admin,
			StartDate:   now,
			Version:     0,
			CreatedDate: now,
			CreatedBy:   caller.Username,
			UpdatedDate: now,
			UpdatedBy:   caller.Username,
		},
	}

	sessionID := caller.ID
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		pw, err := s.NewPassword(ctx, username, tempPassword, caller.Username, &sessionID)
		if err != nil {
			return err
		}
		if err := s.store.CreateUser(ctx, &user.User); err != nil {
			if errors.Is(err, storage.ErrUserAlreadyExists) {
				return fail.Newf("A user with the username %s already exists", username)
			}
			return err
		}
		return pw.Insert(ctx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("username", username),
		slog.String("created_by", caller.Username),
		slog.Bool("admin", admin))
	return user, nil
}

// GetUser returns username. Callers can read themselves, admins can read
// anyone. An empty username means the caller.
func (s *Service) GetUser(ctx context.Context, caller *Session, username string) (*User, error) {
	if caller == nil {
		return nil, fail.Unauthorized("")
	}
	if username == "" || username == caller.Username {
		return caller.User(ctx)
	}

	if err := s.requireAdmin(ctx, caller, "You do not have access to this user"); err != nil {
		return nil, err
	}

	u, err := s.store.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, userNotFound(username)
		}
		return nil, err
	}
	return &User{svc: s, User: *u}, nil
}

// ListUsers returns all users, admins only
func (s *Service) ListUsers(ctx context.Context, caller *Session) ([]*models.User, error) {
	if err := s.requireAdmin(ctx, caller, "Only admins can list users"); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// EnsureAdmin creates the admin account when there are no users at all.
// password is the temporary password, a random one is generated if it is
// empty. The temporary password is logged once. Returns true if the admin
// was created.
func (s *Service) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	var created bool

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		count, err := s.store.CountUsers(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if password == "" {
			password = crypto.Random(bootstrapPasswordBits)
		}

		now := s.clock()
		admin := &models.User{
			Username:    AdminUsername,
			Admin:       true,
			StartDate:   now,
			CreatedDate: now,
			CreatedBy:   AdminUsername,
			UpdatedDate: now,
			UpdatedBy:   AdminUsername,
		}
		if err := s.store.CreateUser(ctx, admin); err != nil {
			return err
		}

		// сессия нужна только для внешних ключей, войти по ней нельзя
		fake := &models.Session{
			ID:          crypto.Random(TokenBits),
			Username:    AdminUsername,
			CSRFToken:   crypto.Random(TokenBits),
			CSRFDate:    now,
			Valid:       false,
			IPAddress:   "127.0.0.1",
			Expires:     now,
			CreatedDate: now,
		}
		if err := s.store.CreateSession(ctx, fake); err != nil {
			return err
		}

		pw, err := s.NewPassword(ctx, AdminUsername, password, AdminUsername, &fake.ID)
		if err != nil {
			return err
		}
		if err := pw.Insert(ctx); err != nil {
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}

	if created {
		s.logger.WarnContext(ctx, "admin user created, change the temporary password",
			slog.String("username", AdminUsername),
			slog.String("password", password))
	}
	return created, nil
}

// Update applies updates on behalf of caller. Only admins can change the
// admin flag and the active dates.
func (u *User) Update(ctx context.Context, caller *Session, updates UserUpdates) error {
	s := u.svc
	if caller == nil {
		return fail.Unauthorized("")
	}

	admin, err := caller.IsAdmin(ctx)
	if err != nil {
		return err
	}
	if !admin {
		if caller.Username != u.Username {
			return fail.Unauthorized("You do not have access to this user")
		}
		if updates.Admin != nil || updates.StartDate != nil || updates.EndDate != nil || updates.ClearEndDate {
			return fail.Unauthorized("Only admins can change admin access or active dates")
		}
	}

	next := u.User
	if updates.Admin != nil {
		next.Admin = *updates.Admin
	}
	if updates.StartDate != nil {
		next.StartDate = updates.StartDate.UTC()
	}
	if updates.ClearEndDate {
		next.EndDate = nil
	}
	if updates.EndDate != nil {
		end := updates.EndDate.UTC()
		next.EndDate = &end
	}
	if next.EndDate != nil && !next.EndDate.After(next.StartDate) {
		return fail.New("The end date must be after the start date")
	}
	next.UpdatedBy = caller.Username
	next.UpdatedDate = s.clock()

	if err := s.store.UpdateUser(ctx, &next, updates.Version); err != nil {
		return conflict(err)
	}

	u.User = next
	if caller.user != nil && caller.Username == u.Username {
		caller.user.User = next
	}
	return nil
}

// SetPassword changes the password of u. Users changing their own password
// must give the current one. Admins can set anyone's password without it,
// the new password then has to be changed within a day.
func (u *User) SetPassword(ctx context.Context, caller *Session, newPassword, oldPassword string) error {
	s := u.svc
	if caller == nil {
		return fail.Unauthorized("")
	}

	pw, err := s.GetPassword(ctx, u.Username)
	if err != nil {
		return err
	}

	if caller.Username == u.Username {
		if oldPassword == "" {
			return fail.New("You must provide your old password to set a new password")
		}
		if pw.Expired() {
			return fail.New("Your password has expired")
		}
		ok, err := pw.Compare(oldPassword)
		if err != nil {
			return err
		}
		if !ok {
			return fail.New("Your old password is incorrect")
		}
		return pw.Update(ctx, newPassword, caller, false)
	}

	if err := s.requireAdmin(ctx, caller, "Only admins can set another user's password"); err != nil {
		return err
	}
	return pw.Update(ctx, newPassword, caller, true)
}

// ResetPassword sets the password of username outside of any session. The
// new password must be changed within a day and every session of the user
// is logged out.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword string) error {
	pw, err := s.GetPassword(ctx, username)
	if err != nil {
		return err
	}
	return pw.Update(ctx, newPassword, nil, true)
}
