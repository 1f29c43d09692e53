package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role identifies what a signed-in account may do.
type Role string

const (
	RoleMember Role = "member"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

// IsStaff reports whether the role can use the staff dashboard.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Membership types
const (
	MembershipBasic   = "basic"
	MembershipPremium = "premium"
	MembershipVIP     = "vip"
)

// Member represents a gym member or a staff account
type Member struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email          string             `bson:"email" json:"email"`
	PasswordHash   string             `bson:"passwordHash" json:"-"`
	FirstName      string             `bson:"firstName" json:"firstName"`
	LastName       string             `bson:"lastName" json:"lastName"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role           Role               `bson:"role" json:"role"`
	MembershipType string             `bson:"membershipType" json:"membershipType"` // basic, premium, vip
	LoyaltyPoints  int                `bson:"loyaltyPoints" json:"loyaltyPoints"`
	JoinDate       time.Time          `bson:"joinDate" json:"joinDate"`
	LastVisit      *time.Time         `bson:"lastVisit,omitempty" json:"lastVisit,omitempty"` // nil until the first check-in
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FullName joins first and last name, skipping empty parts.
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// IsValidMembershipType checks a membership type against the known plans.
func IsValidMembershipType(t string) bool {
	switch t {
	case MembershipBasic, MembershipPremium, MembershipVIP:
		return true
	}
	return false
}
