package notification

import (
	"context"
	"fmt"

	userRepo "localcity/database/repository/user"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// NotificationService defines methods for sending FCM pushes.
type NotificationService interface {
	SendUserPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error
}

// MessageSender is the part of the FCM client used here; *messaging.Client satisfies it.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	users  userRepo.UserRepository
	client MessageSender
}

func NewDefaultNotificationService(users userRepo.UserRepository, client MessageSender) (*DefaultNotificationService, error) {
	if users == nil || client == nil {
		return nil, fmt.Errorf("notification service initialization error: user repository or FCM client is nil")
	}
	return &DefaultNotificationService{users: users, client: client}, nil
}

// SendUserPushNotification looks up a user's FCM token and sends a push.
func (s *DefaultNotificationService) SendUserPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("SendUserPushNotification: could not find user %s: %w", userID, err)
	}
	if u.FCMToken == "" {
		zap.L().Debug("user has no FCM token, skipping push", zap.String("userID", userID))
		return nil
	}

	msg := &messaging.Message{
		Token: u.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	response, err := s.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("SendUserPushNotification: failed to send FCM message: %w", err)
	}
	zap.L().Debug("push sent", zap.String("userID", userID), zap.String("messageID", response))
	return nil
}

// NopNotificationService drops every push. It is used when Firebase is not configured.
type NopNotificationService struct{}

func (NopNotificationService) SendUserPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error {
	zap.L().Debug("push notifications disabled", zap.String("userID", userID), zap.String("title", title))
	return nil
}
