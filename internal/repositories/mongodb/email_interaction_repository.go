package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repositories.EmailInteractionRepository = (*EmailInteractionRepository)(nil)

// EmailInteractionRepository stores the append-only interaction log. Rows are never updated.
type EmailInteractionRepository struct {
	collection *mongo.Collection
}

// NewEmailInteractionRepository creates a new EmailInteractionRepository
func NewEmailInteractionRepository(db *mongo.Database) *EmailInteractionRepository {
	return &EmailInteractionRepository{
		collection: db.Collection("email_interactions"),
	}
}

// Create appends an interaction row
func (r *EmailInteractionRepository) Create(ctx context.Context, interaction *models.EmailInteraction) error {
	interaction.ID = primitive.NewObjectID()
	interaction.ProspectEmail = strings.ToLower(interaction.ProspectEmail)
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, interaction)
	return err
}

// FindFirstByTrackingID returns the oldest row of a type for a tracking id
func (r *EmailInteractionRepository) FindFirstByTrackingID(ctx context.Context, trackingID string, interactionType models.InteractionType) (*models.EmailInteraction, error) {
	filter := bson.M{"trackingId": trackingID, "interactionType": interactionType}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	var interaction models.EmailInteraction
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&interaction); err != nil {
		return nil, translateErr(err)
	}
	return &interaction, nil
}

// FindByTrackingID lists every row for a tracking id in insertion order
func (r *EmailInteractionRepository) FindByTrackingID(ctx context.Context, trackingID string) ([]*models.EmailInteraction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return findMany[models.EmailInteraction](ctx, r.collection, bson.M{"trackingId": trackingID}, opts)
}

// FindByProspectEmail lists every row for a prospect in insertion order
func (r *EmailInteractionRepository) FindByProspectEmail(ctx context.Context, email string) ([]*models.EmailInteraction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	filter := bson.M{"prospectEmail": strings.ToLower(strings.TrimSpace(email))}
	return findMany[models.EmailInteraction](ctx, r.collection, filter, opts)
}
