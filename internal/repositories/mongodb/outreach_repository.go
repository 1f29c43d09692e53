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

var _ repositories.OutreachRepository = (*OutreachRepository)(nil)

// OutreachRepository handles MongoDB operations for OutreachAction
type OutreachRepository struct {
	collection *mongo.Collection
}

// NewOutreachRepository creates a new OutreachRepository
func NewOutreachRepository(db *mongo.Database) *OutreachRepository {
	return &OutreachRepository{
		collection: db.Collection("outreach_actions"),
	}
}

// Create appends an outreach action
func (r *OutreachRepository) Create(ctx context.Context, action *models.OutreachAction) error {
	action.ID = primitive.NewObjectID()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, action)
	return err
}

// FindByMemberID lists a member's outreach trail newest first
func (r *OutreachRepository) FindByMemberID(ctx context.Context, memberID primitive.ObjectID) ([]*models.OutreachAction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[models.OutreachAction](ctx, r.collection, bson.M{"memberId": memberID}, opts)
}
