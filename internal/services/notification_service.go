package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ NotificationService = (*NotificationServiceImpl)(nil)

// NotificationServiceImpl manages in-app notifications
type NotificationServiceImpl struct {
	notificationRepo repositories.NotificationRepository
}

// NewNotificationService creates a new NotificationServiceImpl
func NewNotificationService(notificationRepo repositories.NotificationRepository) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		notificationRepo: notificationRepo,
	}
}

// Notify queues a notification for a member
func (s *NotificationServiceImpl) Notify(ctx context.Context, memberID primitive.ObjectID, notificationType, title, message string) (*models.Notification, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	switch notificationType {
	case models.NotificationReward, models.NotificationOffer, models.NotificationSystem:
	case "":
		notificationType = models.NotificationSystem
	default:
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrValidation, notificationType)
	}

	notification := &models.Notification{
		MemberID: memberID,
		Title:    title,
		Message:  message,
		Type:     notificationType,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return notification, nil
}

// ListForMember returns a member's notifications, newest first
func (s *NotificationServiceImpl) ListForMember(ctx context.Context, memberID primitive.ObjectID, unreadOnly bool) ([]*models.Notification, error) {
	return s.notificationRepo.FindByMember(ctx, memberID, unreadOnly)
}

// MarkRead marks one of the member's notifications as read
func (s *NotificationServiceImpl) MarkRead(ctx context.Context, id, memberID primitive.ObjectID) error {
	err := s.notificationRepo.MarkRead(ctx, id, memberID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
