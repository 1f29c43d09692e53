package mongodb

import (
	"context"
	"fmt"

	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewStore wires every MongoDB repository against db.
func NewStore(db *mongo.Database) *repositories.Store {
	return &repositories.Store{
		Members:          NewMemberRepository(db),
		ChurnEmails:      NewChurnEmailRepository(db),
		Interactions:     NewEmailInteractionRepository(db),
		Offers:           NewLoyaltyOfferRepository(db),
		Redemptions:      NewRedemptionRepository(db),
		PointTransaction: NewPointTransactionRepository(db),
		Visits:           NewVisitRepository(db),
		Outreach:         NewOutreachRepository(db),
		Notifications:    NewNotificationRepository(db),
		WorkoutPlans:     NewWorkoutPlanRepository(db),
		EmailTemplates:   NewEmailTemplateRepository(db),
		Suppressions:     NewSuppressionRepository(db),
	}
}

var collectionIndexes = map[string][]mongo.IndexModel{
	"members": {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "lastVisit", Value: 1}}},
	},
	"churn_emails": {
		{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	},
	"email_interactions": {
		{Keys: bson.D{{Key: "trackingId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "prospectEmail", Value: 1}}},
	},
	"offer_redemptions": {
		{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "offerId", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	"point_transactions": {
		{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "createdAt", Value: -1}}},
	},
	"visits": {
		{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "checkedInAt", Value: -1}}},
	},
	"outreach_actions": {
		{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "createdAt", Value: -1}}},
	},
	"notifications": {
		{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "isRead", Value: 1}}},
	},
	"workout_plans": {
		{Keys: bson.D{{Key: "memberId", Value: 1}}},
	},
	"email_templates": {
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	"email_suppressions": {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
}

// EnsureIndexes creates the indexes the repositories rely on. Safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, models := range collectionIndexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", name, err)
		}
	}
	return nil
}
