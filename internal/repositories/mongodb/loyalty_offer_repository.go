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

// LoyaltyOfferRepository implements the repositories.LoyaltyOfferRepository interface
type LoyaltyOfferRepository struct {
	collection *mongo.Collection
}

// NewLoyaltyOfferRepository creates a new LoyaltyOfferRepository
func NewLoyaltyOfferRepository(db *mongo.Database) repositories.LoyaltyOfferRepository {
	return &LoyaltyOfferRepository{
		collection: db.Collection("loyalty_offers"),
	}
}

// Create creates a new offer
func (r *LoyaltyOfferRepository) Create(ctx context.Context, offer *models.LoyaltyOffer) error {
	offer.ID = primitive.NewObjectID()
	offer.CreatedAt = time.Now()
	offer.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, offer)
	return err
}

// FindByID finds an offer by ID
func (r *LoyaltyOfferRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.LoyaltyOffer, error) {
	var offer models.LoyaltyOffer
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&offer); err != nil {
		return nil, translateErr(err)
	}
	return &offer, nil
}

// FindAll lists offers cheapest first
func (r *LoyaltyOfferRepository) FindAll(ctx context.Context, activeOnly bool) ([]*models.LoyaltyOffer, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "points", Value: 1}, {Key: "title", Value: 1}})
	return findMany[models.LoyaltyOffer](ctx, r.collection, filter, opts)
}

// Update replaces an offer
func (r *LoyaltyOfferRepository) Update(ctx context.Context, offer *models.LoyaltyOffer) error {
	offer.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": offer.ID}, offer)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Count counts all offers
func (r *LoyaltyOfferRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
