package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/iudanet/authd/internal/client/storage"
)

// ListSettings печатает все настройки, только для admin
func (c *Cli) ListSettings(ctx context.Context) error {
	return c.withSession(ctx, func(*storage.SessionData) error {
		values, err := c.apiClient.Settings(ctx)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(values))
		for id := range values {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tVALUE")
		for _, id := range ids {
			fmt.Fprintf(w, "%s\t%v\n", id, values[id])
		}
		return w.Flush()
	})
}

// SetSetting задает настройку. raw - целое число или true/false
func (c *Cli) SetSetting(ctx context.Context, id, raw string) error {
	value, err := parseSettingValue(raw)
	if err != nil {
		return err
	}

	return c.withSession(ctx, func(*storage.SessionData) error {
		if err := c.apiClient.SetSetting(ctx, id, value); err != nil {
			return err
		}
		c.io.Printf("✓ %s = %v\n", id, value)
		return nil
	})
}

// ResetSetting возвращает значение по умолчанию
func (c *Cli) ResetSetting(ctx context.Context, id string) error {
	return c.withSession(ctx, func(*storage.SessionData) error {
		if err := c.apiClient.ResetSetting(ctx, id); err != nil {
			return err
		}
		c.io.Printf("✓ %s reset to default\n", id)
		return nil
	})
}

func parseSettingValue(raw string) (any, error) {
	// сначала число: ParseBool принимает "1" и "0"
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("invalid value %q: expected a whole number or true/false", raw)
}
