// AngelaMos | 2026
// service.go

package notification

import (
	"context"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(
	ctx context.Context,
	userID string,
	unreadOnly bool,
	page, pageSize int,
) ([]NotificationResponse, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	notifications, total, err := s.repo.ListForUser(
		ctx,
		userID,
		unreadOnly,
		pageSize,
		(page-1)*pageSize,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	return ToNotificationResponseList(notifications), total, nil
}

func (s *Service) MarkRead(
	ctx context.Context,
	userID, notificationID string,
) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *Service) MarkAllRead(
	ctx context.Context,
	userID string,
) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(
	ctx context.Context,
	userID string,
) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
