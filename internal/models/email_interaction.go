package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InteractionType enumerates the engagement events recorded for an outreach email.
type InteractionType string

const (
	InteractionEmailSent   InteractionType = "email_sent"
	InteractionLinkClicked InteractionType = "link_clicked"
	InteractionTourViewed  InteractionType = "tour_viewed"
)

// InteractionMetadataVersion is bumped whenever InteractionMetadata changes shape.
const InteractionMetadataVersion = 1

// InteractionMetadata holds request and provider details captured with an interaction.
type InteractionMetadata struct {
	SchemaVersion     int    `bson:"schemaVersion" json:"schemaVersion"`
	UserAgent         string `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	IPAddress         string `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	Referer           string `bson:"referer,omitempty" json:"referer,omitempty"`
	Provider          string `bson:"provider,omitempty" json:"provider,omitempty"`
	ProviderMessageID string `bson:"providerMessageId,omitempty" json:"providerMessageId,omitempty"`
	ChurnEmailID      string `bson:"churnEmailId,omitempty" json:"churnEmailId,omitempty"`
}

// EmailInteraction is one append-only engagement event, correlated by TrackingID
type EmailInteraction struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	ProspectEmail   string              `bson:"prospectEmail" json:"prospectEmail"`
	ProspectName    string              `bson:"prospectName" json:"prospectName"`
	InteractionType InteractionType     `bson:"interactionType" json:"interactionType"`
	EmailSubject    string              `bson:"emailSubject" json:"emailSubject"`
	TrackingID      string              `bson:"trackingId" json:"trackingId"`
	Metadata        InteractionMetadata `bson:"metadata" json:"metadata"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
}
