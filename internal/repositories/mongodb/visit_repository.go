package mongodb

import (
	"context"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repositories.VisitRepository = (*VisitRepository)(nil)

// VisitRepository handles MongoDB operations for Visit
type VisitRepository struct {
	collection *mongo.Collection
}

// NewVisitRepository creates a new VisitRepository
func NewVisitRepository(db *mongo.Database) *VisitRepository {
	return &VisitRepository{
		collection: db.Collection("visits"),
	}
}

// Create inserts a check-in
func (r *VisitRepository) Create(ctx context.Context, visit *models.Visit) error {
	visit.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, visit)
	return err
}

// FindByMemberID returns the member's most recent check-ins
func (r *VisitRepository) FindByMemberID(ctx context.Context, memberID primitive.ObjectID, limit int) ([]*models.Visit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "checkedInAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findMany[models.Visit](ctx, r.collection, bson.M{"memberId": memberID}, opts)
}
