package auth

import "context"

const settingsAdminOnly = "Only admins can update settings"

// SetSetting changes a setting, admins only
func (s *Service) SetSetting(ctx context.Context, caller *Session, id string, value any) error {
	if err := s.requireAdmin(ctx, caller, settingsAdminOnly); err != nil {
		return err
	}
	return s.settings.Set(ctx, caller.Username, id, value)
}

// ResetSetting puts a setting back to its default, admins only
func (s *Service) ResetSetting(ctx context.Context, caller *Session, id string) error {
	if err := s.requireAdmin(ctx, caller, settingsAdminOnly); err != nil {
		return err
	}
	return s.settings.Reset(ctx, id)
}

// AllSettings returns the current value of every setting, admins only
func (s *Service) AllSettings(ctx context.Context, caller *Session) (map[string]any, error) {
	if err := s.requireAdmin(ctx, caller, "Only admins can view settings"); err != nil {
		return nil, err
	}
	return s.settings.All(ctx)
}
