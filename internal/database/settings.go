package database

import (
	"context"
	"fmt"
	"time"

	"piron-pools-go/internal/models"

	"go.uber.org/zap"
)

func scanSetting(row rowScanner) (*models.SystemSetting, error) {
	var setting models.SystemSetting
	if err := row.Scan(&setting.Key, &setting.Value, &setting.Description, &setting.UpdatedBy, &setting.UpdatedAt); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (s *Service) GetSetting(ctx context.Context, key string) (*models.SystemSetting, error) {
	setting, err := scanSetting(s.db.QueryRowContext(ctx, queryGetSetting, key))
	if err != nil {
		return nil, notFound(err, "setting", key)
	}
	return setting, nil
}

func (s *Service) ListSettings(ctx context.Context) ([]models.SystemSetting, error) {
	rows, err := s.db.QueryContext(ctx, queryListSettings)
	if err != nil {
		return nil, fmt.Errorf("unable to query settings: %w", err)
	}
	defer closeRows(rows)

	var settings []models.SystemSetting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan setting row: %w", err)
		}
		settings = append(settings, *setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating setting rows: %w", err)
	}
	return settings, nil
}

// SetSetting upserts a setting. An empty description keeps the stored one.
func (s *Service) SetSetting(ctx context.Context, key, value, description, updatedBy string) (*models.SystemSetting, error) {
	if _, err := s.db.ExecContext(ctx, queryUpsertSetting, key, value, description, updatedBy, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("unable to upsert setting %s: %w", key, err)
	}

	zap.L().Info("System setting updated",
		zap.String("key", key),
		zap.String("value", value),
		zap.String("updated_by", updatedBy))

	return s.GetSetting(ctx, key)
}
