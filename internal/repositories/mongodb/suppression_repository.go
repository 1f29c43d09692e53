package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SuppressionRepository implements the repositories.SuppressionRepository interface
type SuppressionRepository struct {
	collection *mongo.Collection
}

// NewSuppressionRepository creates a new SuppressionRepository
func NewSuppressionRepository(db *mongo.Database) repositories.SuppressionRepository {
	return &SuppressionRepository{
		collection: db.Collection("email_suppressions"),
	}
}

// IsSuppressed checks if an address exists in the suppression collection.
func (r *SuppressionRepository) IsSuppressed(ctx context.Context, email string) (bool, error) {
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Add upserts an address so repeated unsubscribes keep the first entry
func (r *SuppressionRepository) Add(ctx context.Context, entry *models.SuppressionEntry) error {
	entry.Email = strings.ToLower(strings.TrimSpace(entry.Email))
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	update := bson.M{"$setOnInsert": bson.M{
		"email":      entry.Email,
		"reason":     entry.Reason,
		"trackingId": entry.TrackingID,
		"createdAt":  entry.CreatedAt,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"email": entry.Email}, update, options.Update().SetUpsert(true))
	return err
}

// FindAll finds all suppression entries
func (r *SuppressionRepository) FindAll(ctx context.Context) ([]*models.SuppressionEntry, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	return findMany[models.SuppressionEntry](ctx, r.collection, bson.M{}, opts)
}
