package domain

import (
	"context"
	"errors"
)

// Publisher accepts notifications from the core. Delivery is external;
// publishing never blocks a lifecycle transition on transport failures.
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
}

type ListNotificationRequest struct {
	UserID     string
	UnreadOnly bool
	Limit      int
}

type ListNotificationResponse struct {
	Notifications []Notification `json:"notifications"`
}

type Service interface {
	Publisher
	List(ctx context.Context, req ListNotificationRequest) (ListNotificationResponse, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
}

var (
	ErrInvalidShop          = errors.New("invalid_shop")
	ErrInvalidNotification  = errors.New("invalid_notification")
	ErrInvalidUser          = errors.New("invalid_user")
	ErrNotificationNotFound = errors.New("notification_not_found")
	ErrNotRecipient         = errors.New("not_recipient")
)
