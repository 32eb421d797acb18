package api

import (
	"context"

	"piron-pools-go/internal/models"
)

func (s *Service) ListNotifications(ctx context.Context, p *models.Principal, limit int) ([]models.Notification, error) {
	user, err := s.EnsureUser(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.dbService.ListNotifications(ctx, user.Id, clampLimit(limit))
}

// MarkNotificationRead marks one of the principal's notifications read. Another
// user's notification id reports not found.
func (s *Service) MarkNotificationRead(ctx context.Context, p *models.Principal, notificationId string) error {
	user, err := s.EnsureUser(ctx, p)
	if err != nil {
		return err
	}
	return s.dbService.MarkNotificationRead(ctx, user.Id, notificationId)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, p *models.Principal) (int64, error) {
	user, err := s.EnsureUser(ctx, p)
	if err != nil {
		return 0, err
	}
	return s.dbService.MarkAllNotificationsRead(ctx, user.Id)
}
