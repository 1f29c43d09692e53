package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Point ledger reasons
const (
	PointReasonVisit      = "visit"
	PointReasonRedemption = "redemption"
)

// PointTransaction records a single change to a member's loyalty balance.
type PointTransaction struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MemberID     primitive.ObjectID `bson:"memberId" json:"memberId"`
	Delta        int                `bson:"delta" json:"delta"`
	BalanceAfter int                `bson:"balanceAfter" json:"balanceAfter"`
	Reason       string             `bson:"reason" json:"reason"`
	ReferenceID  primitive.ObjectID `bson:"referenceId,omitempty" json:"referenceId,omitempty"` // visit or redemption id
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
