package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Visit represents a member check-in at the gym
type Visit struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MemberID      primitive.ObjectID `bson:"memberId" json:"memberId"`
	CheckedInAt   time.Time          `bson:"checkedInAt" json:"checkedInAt"`
	PointsAwarded int                `bson:"pointsAwarded" json:"pointsAwarded"`
	RecordedBy    primitive.ObjectID `bson:"recordedBy,omitempty" json:"recordedBy,omitempty"`
}
