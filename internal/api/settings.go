package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"
)

// SetSettingRequest is the input of SetSetting
type SetSettingRequest struct {
	Value       string `json:"value" validate:"max=1000"`
	Description string `json:"description" validate:"max=500"`
}

func (s *Service) GetSetting(ctx context.Context, p *models.Principal, key string) (*models.SystemSetting, error) {
	if _, err := s.requireAdmin(ctx, p); err != nil {
		return nil, err
	}
	return s.dbService.GetSetting(ctx, key)
}

func (s *Service) ListSettings(ctx context.Context, p *models.Principal) ([]models.SystemSetting, error) {
	if _, err := s.requireAdmin(ctx, p); err != nil {
		return nil, err
	}
	return s.dbService.ListSettings(ctx)
}

func (s *Service) SetSetting(ctx context.Context, p *models.Principal, key string, req SetSettingRequest) (*models.SystemSetting, error) {
	actor, err := s.requireSuperAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, invalidInput("setting key is required")
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	setting, err := s.dbService.SetSetting(ctx, key, req.Value, req.Description, actor.Id)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "UPDATE_SETTING", key, map[string]any{"value": req.Value})
	return setting, nil
}

// settingEnabled reads a boolean setting; a missing key is false.
func (s *Service) settingEnabled(ctx context.Context, key string) (bool, error) {
	setting, err := s.dbService.GetSetting(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(setting.Value))
	if err != nil {
		return false, nil
	}
	return enabled, nil
}
