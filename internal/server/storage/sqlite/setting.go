package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/authd/internal/models"
	"github.com/iudanet/authd/internal/server/storage"
)

const (
	sqlGetSetting    = `SELECT value FROM settings WHERE setting_id = ?`
	sqlDeleteSetting = `DELETE FROM settings WHERE setting_id = ?`
	sqlInsertSetting = `
		INSERT INTO settings (setting_id, value, updated_by, updated_date)
		VALUES (?, ?, ?, ?)
	`
)

// GetSetting returns the stored value of a setting
func (s *Storage) GetSetting(ctx context.Context, id string) (string, error) {
	v, err := s.q.getSetting.One(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", storage.ErrSettingNotFound
		}
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return v, nil
}

// PutSetting replaces the stored value of a setting
func (s *Storage) PutSetting(ctx context.Context, setting *models.Setting) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.q.delSetting.Exec(ctx, setting.ID); err != nil {
			return fmt.Errorf("failed to delete setting: %w", err)
		}
		if _, err := s.q.putSetting.Exec(ctx,
			setting.ID,
			setting.Value,
			setting.UpdatedBy,
			setting.UpdatedDate,
		); err != nil {
			return fmt.Errorf("failed to insert setting: %w", err)
		}
		return nil
	})
}

// DeleteSetting removes the stored value, the default applies again
func (s *Storage) DeleteSetting(ctx context.Context, id string) error {
	if _, err := s.q.delSetting.Exec(ctx, id); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

var _ storage.Store = (*Storage)(nil)
