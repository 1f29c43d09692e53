package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmailTemplate represents a reusable outreach email
type EmailTemplate struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name" binding:"required"`
	Subject   string             `bson:"subject" json:"subject" binding:"required"`
	Content   string             `bson:"content" json:"content" binding:"required"` // may contain [PLACEHOLDER] tokens
	Variables []string           `bson:"variables" json:"variables"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	CreatedBy string             `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
