package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repositories.ChurnEmailRepository = (*ChurnEmailRepository)(nil)

// ChurnEmailRepository handles MongoDB operations for ChurnEmail
type ChurnEmailRepository struct {
	collection *mongo.Collection
}

// NewChurnEmailRepository creates a new ChurnEmailRepository
func NewChurnEmailRepository(db *mongo.Database) *ChurnEmailRepository {
	return &ChurnEmailRepository{
		collection: db.Collection("churn_emails"),
	}
}

// Create inserts a new churn email
func (r *ChurnEmailRepository) Create(ctx context.Context, email *models.ChurnEmail) error {
	now := time.Now()
	email.ID = primitive.NewObjectID()
	if email.CreatedAt.IsZero() {
		email.CreatedAt = now
	}
	email.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, email)
	return translateErr(err)
}

// FindByID finds a churn email by ID
func (r *ChurnEmailRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChurnEmail, error) {
	var email models.ChurnEmail
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&email); err != nil {
		return nil, translateErr(err)
	}
	return &email, nil
}

// FindAll lists churn emails newest first, optionally filtered by status
func (r *ChurnEmailRepository) FindAll(ctx context.Context, status models.ChurnEmailStatus) ([]*models.ChurnEmail, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[models.ChurnEmail](ctx, r.collection, filter, opts)
}

// FindLatestByMember returns the most recently generated email for a member
func (r *ChurnEmailRepository) FindLatestByMember(ctx context.Context, memberID primitive.ObjectID) (*models.ChurnEmail, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	var email models.ChurnEmail
	if err := r.collection.FindOne(ctx, bson.M{"memberId": memberID}, opts).Decode(&email); err != nil {
		return nil, translateErr(err)
	}
	return &email, nil
}

// UpdateStatus moves an email out of from. The status is part of the filter so racing
// transitions cannot both apply.
func (r *ChurnEmailRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.ChurnEmailStatus, update models.ChurnEmailUpdate) (*models.ChurnEmail, error) {
	set := bson.M{"status": update.Status, "updatedAt": time.Now()}
	if update.StaffID != nil {
		set["staffId"] = *update.StaffID
	}
	if update.ApprovedAt != nil {
		set["approvedAt"] = *update.ApprovedAt
		if update.StaffID != nil {
			set["approvedBy"] = *update.StaffID
		}
	}
	if update.RejectedAt != nil {
		set["rejectedAt"] = *update.RejectedAt
	}
	if update.SentAt != nil {
		set["sentAt"] = *update.SentAt
	}
	if update.TrackingID != "" {
		set["trackingId"] = update.TrackingID
	}

	change := bson.M{"$set": set}
	if update.Status == models.ChurnEmailSent {
		change["$unset"] = bson.M{"dispatchingAt": ""}
	}
	return r.findOneAndUpdate(ctx, id, bson.M{"_id": id, "status": from}, change)
}

// ClaimDispatch marks an approved email as being delivered
func (r *ChurnEmailRepository) ClaimDispatch(ctx context.Context, id primitive.ObjectID, at, staleBefore time.Time) (*models.ChurnEmail, error) {
	filter := bson.M{
		"_id":    id,
		"status": models.ChurnEmailApproved,
		"$or": bson.A{
			bson.M{"dispatchingAt": nil},
			bson.M{"dispatchingAt": bson.M{"$lt": staleBefore}},
		},
	}
	return r.findOneAndUpdate(ctx, id, filter, bson.M{"$set": bson.M{"dispatchingAt": at, "updatedAt": time.Now()}})
}

// ReleaseDispatch drops a claim after a failed delivery
func (r *ChurnEmailRepository) ReleaseDispatch(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"dispatchingAt": ""}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// findOneAndUpdate applies change when filter matches, telling a missing email apart from a guard miss
func (r *ChurnEmailRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, filter, change bson.M) (*models.ChurnEmail, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var email models.ChurnEmail
	err := r.collection.FindOneAndUpdate(ctx, filter, change, opts).Decode(&email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return nil, countErr
		}
		if count == 0 {
			return nil, repositories.ErrNotFound
		}
		return nil, repositories.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &email, nil
}
