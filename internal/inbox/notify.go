//go:generate go run go.uber.org/mock/mockgen -source=notify.go -destination=../mocks/mock_notify.go -package=mocks
package inbox

import "context"

// Notifier sends a notification to a user.
type Notifier interface {
	SendNotification(ctx context.Context, recipientID, title, body string) error
}

// NotificationSource is the per-user notification feed.
type NotificationSource interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	SubscribeNotifications(ctx context.Context, userID string, onEvent func(Notification)) (Subscription, error)
}
