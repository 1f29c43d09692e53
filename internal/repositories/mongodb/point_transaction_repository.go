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

// Compile-time check to ensure PointTransactionRepository implements the interface
var _ repositories.PointTransactionRepository = (*PointTransactionRepository)(nil)

// PointTransactionRepository handles MongoDB operations for PointTransaction
type PointTransactionRepository struct {
	collection *mongo.Collection
}

// NewPointTransactionRepository creates a new PointTransactionRepository
func NewPointTransactionRepository(db *mongo.Database) *PointTransactionRepository {
	return &PointTransactionRepository{
		collection: db.Collection("point_transactions"),
	}
}

// Create inserts a new ledger row
func (r *PointTransactionRepository) Create(ctx context.Context, transaction *models.PointTransaction) error {
	transaction.ID = primitive.NewObjectID()
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, transaction)
	return err
}

// FindByMemberID finds all ledger rows for a member, newest first
func (r *PointTransactionRepository) FindByMemberID(ctx context.Context, memberID primitive.ObjectID) ([]*models.PointTransaction, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[models.PointTransaction](ctx, r.collection, bson.M{"memberId": memberID}, findOptions)
}
