package models

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RiskLevel is the churn-risk band derived from visit recency.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ChurnEmailStatus is the approval state of a generated retention email.
type ChurnEmailStatus string

const (
	ChurnEmailPending  ChurnEmailStatus = "pending"
	ChurnEmailApproved ChurnEmailStatus = "approved"
	ChurnEmailRejected ChurnEmailStatus = "rejected"
	ChurnEmailSent     ChurnEmailStatus = "sent"
)

// ErrInvalidTransition is returned when a status change is not in the transition table.
var ErrInvalidTransition = errors.New("invalid churn email status transition")

// rejected and sent have no outgoing edges.
var churnEmailTransitions = map[ChurnEmailStatus][]ChurnEmailStatus{
	ChurnEmailPending:  {ChurnEmailApproved, ChurnEmailRejected},
	ChurnEmailApproved: {ChurnEmailSent},
}

// IsValid reports whether s is one of the four known statuses.
func (s ChurnEmailStatus) IsValid() bool {
	switch s {
	case ChurnEmailPending, ChurnEmailApproved, ChurnEmailRejected, ChurnEmailSent:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s ChurnEmailStatus) IsTerminal() bool {
	return s == ChurnEmailRejected || s == ChurnEmailSent
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s ChurnEmailStatus) CanTransitionTo(next ChurnEmailStatus) bool {
	for _, allowed := range churnEmailTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition (wrapped with both states) when from→to is illegal.
func ValidateTransition(from, to ChurnEmailStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// MemberSnapshotVersion is bumped whenever MemberSnapshot changes shape.
const MemberSnapshotVersion = 1

// MemberSnapshot freezes the member data an email was generated from.
type MemberSnapshot struct {
	Version            int        `bson:"version" json:"version"`
	MemberID           string     `bson:"memberId" json:"memberId"`
	FirstName          string     `bson:"firstName" json:"firstName"`
	LastName           string     `bson:"lastName" json:"lastName"`
	Email              string     `bson:"email" json:"email"`
	MembershipType     string     `bson:"membershipType" json:"membershipType"`
	LoyaltyPoints      int        `bson:"loyaltyPoints" json:"loyaltyPoints"`
	JoinDate           time.Time  `bson:"joinDate" json:"joinDate"`
	LastVisit          *time.Time `bson:"lastVisit,omitempty" json:"lastVisit,omitempty"`
	DaysSinceLastVisit *int       `bson:"daysSinceLastVisit,omitempty" json:"daysSinceLastVisit,omitempty"`
	RiskLevel          RiskLevel  `bson:"riskLevel" json:"riskLevel"`
	RiskPercentage     int        `bson:"riskPercentage" json:"riskPercentage"`
	CapturedAt         time.Time  `bson:"capturedAt" json:"capturedAt"`
}

// Clone returns a copy that shares no pointers with s.
func (s MemberSnapshot) Clone() MemberSnapshot {
	out := s
	if s.LastVisit != nil {
		t := *s.LastVisit
		out.LastVisit = &t
	}
	if s.DaysSinceLastVisit != nil {
		d := *s.DaysSinceLastVisit
		out.DaysSinceLastVisit = &d
	}
	return out
}

// ChurnEmail is an AI-drafted retention email awaiting staff review
type ChurnEmail struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	MemberID         primitive.ObjectID  `bson:"memberId" json:"memberId"`
	StaffID          *primitive.ObjectID `bson:"staffId,omitempty" json:"staffId,omitempty"`
	Subject          string              `bson:"subject" json:"subject"`
	Content          string              `bson:"content" json:"content"`
	RiskLevel        RiskLevel           `bson:"riskLevel" json:"riskLevel"`
	CurrentRiskBand  RiskLevel           `bson:"currentRiskBand" json:"currentRiskBand"`
	PreviousRiskBand RiskLevel           `bson:"previousRiskBand,omitempty" json:"previousRiskBand,omitempty"`
	MemberProfile    MemberSnapshot      `bson:"memberProfile" json:"memberProfile"`
	Status           ChurnEmailStatus    `bson:"status" json:"status"`
	GeneratedBy      string              `bson:"generatedBy" json:"generatedBy"` // gemini, mock
	ApprovedBy       *primitive.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time          `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	RejectedAt       *time.Time          `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	SentAt           *time.Time          `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	// DispatchingAt is set while a delivery is in flight
	DispatchingAt    *time.Time          `bson:"dispatchingAt,omitempty" json:"dispatchingAt,omitempty"`
	TrackingID       string              `bson:"trackingId,omitempty" json:"trackingId,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ChurnEmailUpdate carries the fields stamped during a status transition.
type ChurnEmailUpdate struct {
	Status     ChurnEmailStatus
	StaffID    *primitive.ObjectID
	ApprovedAt *time.Time
	RejectedAt *time.Time
	SentAt     *time.Time
	TrackingID string
}
