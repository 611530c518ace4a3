package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/iudanet/authd/internal/client/storage"
	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/pkg/api"
)

// ShowUser показывает пользователя сессии или указанного пользователя
func (c *Cli) ShowUser(ctx context.Context, username string) error {
	return c.withSession(ctx, func(*storage.SessionData) error {
		user, err := c.apiClient.GetUser(ctx, username)
		if err != nil {
			return err
		}
		c.printUser(user)
		return nil
	})
}

// ListUsers печатает всех пользователей, только для admin
func (c *Cli) ListUsers(ctx context.Context) error {
	return c.withSession(ctx, func(*storage.SessionData) error {
		users, err := c.apiClient.ListUsers(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tADMIN\tSTART\tEND\tVERSION")
		for _, u := range users {
			end := "-"
			if u.EndDate != nil {
				end = formatTime(*u.EndDate)
			}
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%d\n", u.Username, u.Admin, formatTime(u.StartDate), end, u.Version)
		}
		return w.Flush()
	})
}

// AddUser создает пользователя с временным паролем
func (c *Cli) AddUser(ctx context.Context, username string, admin bool) error {
	return c.withSession(ctx, func(*storage.SessionData) error {
		password, err := c.readNewPassword("Temporary password: ")
		if err != nil {
			return err
		}

		user, err := c.apiClient.CreateUser(ctx, api.CreateUserRequest{
			Username: username,
			Password: password,
			Admin:    admin,
		})
		if err != nil {
			return err
		}

		c.io.Println("✓ User created")
		c.printUser(user)
		return nil
	})
}

// SetAdmin выдает или забирает права admin
func (c *Cli) SetAdmin(ctx context.Context, username string, admin bool) error {
	return c.withSession(ctx, func(*storage.SessionData) error {
		user, err := c.apiClient.GetUser(ctx, username)
		if err != nil {
			return err
		}

		user, err = c.apiClient.UpdateUser(ctx, username, api.UpdateUserRequest{
			Version: &user.Version,
			Admin:   &admin,
		})
		if err != nil {
			return err
		}

		c.io.Println("✓ User updated")
		c.printUser(user)
		return nil
	})
}

func (c *Cli) printUser(u *models.User) {
	c.io.Printf("Username: %s\n", u.Username)
	c.io.Printf("Admin: %t\n", u.Admin)
	c.io.Printf("Active from: %s\n", formatTime(u.StartDate))
	if u.EndDate != nil {
		c.io.Printf("Active until: %s\n", formatTime(*u.EndDate))
	}
	c.io.Printf("Created: %s by %s\n", formatTime(u.CreatedDate), u.CreatedBy)
	c.io.Printf("Updated: %s by %s\n", formatTime(u.UpdatedDate), u.UpdatedBy)
	c.io.Printf("Version: %d\n", u.Version)
}
