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

var _ repositories.RedemptionRepository = (*RedemptionRepository)(nil)

// RedemptionRepository handles MongoDB operations for OfferRedemption.
// A unique index on (memberId, offerId) backs the one-redemption-per-offer rule.
type RedemptionRepository struct {
	collection *mongo.Collection
}

// NewRedemptionRepository creates a new RedemptionRepository
func NewRedemptionRepository(db *mongo.Database) *RedemptionRepository {
	return &RedemptionRepository{
		collection: db.Collection("offer_redemptions"),
	}
}

// Create inserts a redemption
func (r *RedemptionRepository) Create(ctx context.Context, redemption *models.OfferRedemption) error {
	redemption.ID = primitive.NewObjectID()
	if redemption.RedeemedAt.IsZero() {
		redemption.RedeemedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, redemption)
	return translateErr(err)
}

// FindByMemberAndOffer finds a member's redemption of one offer
func (r *RedemptionRepository) FindByMemberAndOffer(ctx context.Context, memberID, offerID primitive.ObjectID) (*models.OfferRedemption, error) {
	var redemption models.OfferRedemption
	err := r.collection.FindOne(ctx, bson.M{"memberId": memberID, "offerId": offerID}).Decode(&redemption)
	if err != nil {
		return nil, translateErr(err)
	}
	return &redemption, nil
}

// FindByMember lists a member's redemptions newest first
func (r *RedemptionRepository) FindByMember(ctx context.Context, memberID primitive.ObjectID) ([]*models.OfferRedemption, error) {
	opts := options.Find().SetSort(bson.D{{Key: "redeemedAt", Value: -1}})
	return findMany[models.OfferRedemption](ctx, r.collection, bson.M{"memberId": memberID}, opts)
}
