package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outreach action types
const (
	OutreachCall     = "call"
	OutreachEmail    = "email"
	OutreachInPerson = "in_person"
	OutreachOffer    = "offer"
)

// OutreachAction is a staff-logged contact with a member
type OutreachAction struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MemberID   primitive.ObjectID `bson:"memberId" json:"memberId"`
	StaffID    primitive.ObjectID `bson:"staffId" json:"staffId"`
	ActionType string             `bson:"actionType" json:"actionType"`
	Notes      string             `bson:"notes" json:"notes"`
	Outcome    string             `bson:"outcome,omitempty" json:"outcome,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// IsValidOutreachType checks an action type against the supported channels.
func IsValidOutreachType(t string) bool {
	switch t {
	case OutreachCall, OutreachEmail, OutreachInPerson, OutreachOffer:
		return true
	}
	return false
}
