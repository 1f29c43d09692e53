package mongodb

import (
	"context"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EmailTemplateRepository implements the repositories.EmailTemplateRepository interface
type EmailTemplateRepository struct {
	collection *mongo.Collection
}

// NewEmailTemplateRepository creates a new EmailTemplateRepository
func NewEmailTemplateRepository(db *mongo.Database) repositories.EmailTemplateRepository {
	return &EmailTemplateRepository{
		collection: db.Collection("email_templates"),
	}
}

// FindByID finds a template by ID
func (r *EmailTemplateRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&template); err != nil {
		return nil, translateErr(err)
	}
	return &template, nil
}

// FindByName finds a template by name
func (r *EmailTemplateRepository) FindByName(ctx context.Context, name string) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	if err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&template); err != nil {
		return nil, translateErr(err)
	}
	return &template, nil
}

// FindAll lists templates sorted by name
func (r *EmailTemplateRepository) FindAll(ctx context.Context) ([]*models.EmailTemplate, error) {
	opts := options.Find().SetSort(bson.M{"name": 1}) // Sort by name ascending
	return findMany[models.EmailTemplate](ctx, r.collection, bson.M{}, opts)
}

// Create creates a new template
func (r *EmailTemplateRepository) Create(ctx context.Context, template *models.EmailTemplate) error {
	template.ID = primitive.NewObjectID()
	template.CreatedAt = time.Now()
	template.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, template)
	return translateErr(err)
}

// Update updates a template
func (r *EmailTemplateRepository) Update(ctx context.Context, template *models.EmailTemplate) error {
	template.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": template.ID}, template)
	if err != nil {
		return translateErr(err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Delete deletes a template
func (r *EmailTemplateRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
