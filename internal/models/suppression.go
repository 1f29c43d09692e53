package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SuppressionEntry is an address that must not receive outreach email.
type SuppressionEntry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email      string             `bson:"email" json:"email"`
	Reason     string             `bson:"reason" json:"reason"`
	TrackingID string             `bson:"trackingId,omitempty" json:"trackingId,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
