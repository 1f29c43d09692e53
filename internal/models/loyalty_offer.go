package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoyaltyOffer is a reward in the loyalty catalog that members buy with points
type LoyaltyOffer struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Points      int                `bson:"points" json:"points"`     // cost in loyalty points
	Category    string             `bson:"category" json:"category"` // merchandise, session, guest_pass, discount
	IsActive    bool               `bson:"isActive" json:"isActive"`
	ValidUntil  *time.Time         `bson:"validUntil,omitempty" json:"validUntil,omitempty"`
	CreatedBy   string             `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsAvailable reports whether the offer can be redeemed at now.
func (o *LoyaltyOffer) IsAvailable(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	return o.ValidUntil == nil || now.Before(*o.ValidUntil)
}

// OfferRedemption records one member exchanging points for an offer
type OfferRedemption struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MemberID    primitive.ObjectID `bson:"memberId" json:"memberId"`
	OfferID     primitive.ObjectID `bson:"offerId" json:"offerId"`
	OfferTitle  string             `bson:"offerTitle" json:"offerTitle"`
	PointsSpent int                `bson:"pointsSpent" json:"pointsSpent"`
	RedeemedAt  time.Time          `bson:"redeemedAt" json:"redeemedAt"`
}
