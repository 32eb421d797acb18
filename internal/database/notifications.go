package database

import (
	"context"
	"fmt"
	"time"

	"piron-pools-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) CreateNotification(ctx context.Context, userId, notificationType, title, message string) (*models.Notification, error) {
	n := &models.Notification{
		Id:        uuid.New().String(),
		UserId:    userId,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, queryInsertNotification, n.Id, n.UserId, n.Type, n.Title, n.Message, n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("unable to insert notification: %w", err)
	}

	zap.L().Debug("Notification created",
		zap.String("notification_id", n.Id),
		zap.String("user_id", userId),
		zap.String("type", notificationType))
	return n, nil
}

func (s *Service) ListNotifications(ctx context.Context, userId string, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, queryListNotifications, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query notifications: %w", err)
	}
	defer closeRows(rows)

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.Id, &n.UserId, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead only touches notifications owned by userId.
func (s *Service) MarkNotificationRead(ctx context.Context, userId, notificationId string) error {
	result, err := s.db.ExecContext(ctx, queryMarkNotificationRead, notificationId, userId)
	if err != nil {
		return fmt.Errorf("unable to mark notification read: %w", err)
	}
	return checkAffected(result, "notification", notificationId)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userId string) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryMarkAllNotificationsRead, userId)
	if err != nil {
		return 0, fmt.Errorf("unable to mark notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unable to get rows affected: %w", err)
	}
	return n, nil
}
