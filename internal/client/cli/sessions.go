package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/iudanet/authd/internal/client/storage"
)

// Sessions печатает историю сессий. Пустой username - текущий пользователь
func (c *Cli) Sessions(ctx context.Context, username string) error {
	return c.withSession(ctx, func(data *storage.SessionData) error {
		if username == "" {
			username = data.Username
		}

		sessions, err := c.apiClient.SessionHistory(ctx, username)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tEXPIRES\tIP\tVALID\tUSER AGENT")
		for _, s := range sessions {
			agent := "-"
			if s.UserAgent != nil {
				agent = *s.UserAgent
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
				formatTime(s.CreatedDate), formatTime(s.Expires), s.IPAddress, s.Valid, agent)
		}
		return w.Flush()
	})
}
