package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"piron-pools-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogAdminAction appends an audit entry. Details are stored as a JSON object.
func (s *Service) LogAdminAction(ctx context.Context, adminId, action, targetId string, details map[string]any) error {
	encoded := ""
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("unable to encode action details: %w", err)
		}
		encoded = string(b)
	}

	actionId := uuid.New().String()
	_, err := s.db.ExecContext(ctx, queryInsertAdminAction, actionId, adminId, action, targetId, encoded, time.Now().UTC())
	if err != nil {
		zap.L().Error("Failed to record admin action",
			zap.String("admin_id", adminId),
			zap.String("action", action),
			zap.Error(err))
		return fmt.Errorf("unable to insert admin action: %w", err)
	}

	zap.L().Info("Admin action recorded",
		zap.String("action_id", actionId),
		zap.String("admin_id", adminId),
		zap.String("action", action),
		zap.String("target_id", targetId))
	return nil
}

// ListAdminActions returns audit entries newest first, for one admin when
// adminId is non-empty.
func (s *Service) ListAdminActions(ctx context.Context, adminId string, limit int) ([]models.AdminAction, error) {
	query, args := queryListAdminActions, []any{limit}
	if adminId != "" {
		query, args = queryListAdminActionsByAdmin, []any{adminId, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query admin actions: %w", err)
	}
	defer closeRows(rows)

	var actions []models.AdminAction
	for rows.Next() {
		var a models.AdminAction
		if err := rows.Scan(&a.Id, &a.AdminId, &a.Action, &a.TargetId, &a.Details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan admin action row: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin action rows: %w", err)
	}
	return actions, nil
}
