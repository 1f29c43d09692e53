package mongodb

import (
	"context"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository implements the repositories.NotificationRepository interface
type NotificationRepository struct {
	collection *mongo.Collection
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *mongo.Database) repositories.NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	notification.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// FindByMember finds a member's notifications, newest first
func (r *NotificationRepository) FindByMember(ctx context.Context, memberID primitive.ObjectID, unreadOnly bool) ([]*models.Notification, error) {
	filter := bson.M{"memberId": memberID}
	if unreadOnly {
		filter["isRead"] = false
	}
	opts := options.Find().
		SetLimit(100).
		SetSort(bson.M{"createdAt": -1})
	return findMany[models.Notification](ctx, r.collection, filter, opts)
}

// MarkRead flags a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, memberID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "memberId": memberID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
