package notification

import (
	"context"

	"taskbroker/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
}

// Pusher delivers a typed payload on the recipient's private channel.
type Pusher interface {
	PublishNotification(userID int64, event string, n *domain.Notification)
}
