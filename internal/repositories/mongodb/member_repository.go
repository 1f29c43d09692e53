package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure MemberRepository implements the interface
var _ repositories.MemberRepository = (*MemberRepository)(nil)

// MemberRepository handles MongoDB operations for Member
type MemberRepository struct {
	collection *mongo.Collection
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *mongo.Database) *MemberRepository {
	return &MemberRepository{
		collection: db.Collection("members"),
	}
}

// Create inserts a new member
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	now := time.Now()
	member.ID = primitive.NewObjectID()
	member.Email = strings.ToLower(strings.TrimSpace(member.Email))
	member.CreatedAt = now
	member.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, member)
	return translateErr(err)
}

// FindByID finds a member by ID
func (r *MemberRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	var member models.Member
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&member); err != nil {
		return nil, translateErr(err)
	}
	return &member, nil
}

// FindByEmail finds a member by email
func (r *MemberRepository) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := r.collection.FindOne(ctx, filter).Decode(&member); err != nil {
		return nil, translateErr(err)
	}
	return &member, nil
}

// FindAll retrieves members sorted by last name with pagination
func (r *MemberRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Member, error) {
	opts := pageOptions(page, limit).SetSort(bson.D{{Key: "lastName", Value: 1}, {Key: "firstName", Value: 1}})
	return findMany[models.Member](ctx, r.collection, bson.M{}, opts)
}

// FindAtRisk finds members who never checked in or whose last visit is before cutoff
func (r *MemberRepository) FindAtRisk(ctx context.Context, cutoff time.Time) ([]*models.Member, error) {
	filter := bson.M{
		"role": models.RoleMember,
		"$or": bson.A{
			bson.M{"lastVisit": nil}, // matches missing and null
			bson.M{"lastVisit": bson.M{"$lt": cutoff}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "lastVisit", Value: 1}})
	return findMany[models.Member](ctx, r.collection, filter, opts)
}

// Update replaces an existing member
func (r *MemberRepository) Update(ctx context.Context, member *models.Member) error {
	member.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": member.ID}, member)
	if err != nil {
		return translateErr(err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// UpdateLastVisit stamps the member's most recent check-in
func (r *MemberRepository) UpdateLastVisit(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{"lastVisit": at, "updatedAt": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// AdjustPoints atomically changes the point balance. Deductions carry a balance guard in the filter.
func (r *MemberRepository) AdjustPoints(ctx context.Context, id primitive.ObjectID, delta int) (int, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["loyaltyPoints"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"loyaltyPoints": delta},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var member models.Member
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return 0, countErr
		}
		if count == 0 {
			return 0, repositories.ErrNotFound
		}
		return 0, repositories.ErrInsufficientBalance
	}
	if err != nil {
		return 0, err
	}
	return member.LoyaltyPoints, nil
}

// Count counts all members
func (r *MemberRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
