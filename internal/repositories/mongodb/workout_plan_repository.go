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

var _ repositories.WorkoutPlanRepository = (*WorkoutPlanRepository)(nil)

// WorkoutPlanRepository handles MongoDB operations for WorkoutPlan
type WorkoutPlanRepository struct {
	collection *mongo.Collection
}

// NewWorkoutPlanRepository creates a new WorkoutPlanRepository
func NewWorkoutPlanRepository(db *mongo.Database) *WorkoutPlanRepository {
	return &WorkoutPlanRepository{
		collection: db.Collection("workout_plans"),
	}
}

// Create inserts a workout plan
func (r *WorkoutPlanRepository) Create(ctx context.Context, plan *models.WorkoutPlan) error {
	plan.ID = primitive.NewObjectID()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, plan)
	return err
}

// FindByMemberID lists a member's plans newest first
func (r *WorkoutPlanRepository) FindByMemberID(ctx context.Context, memberID primitive.ObjectID) ([]*models.WorkoutPlan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[models.WorkoutPlan](ctx, r.collection, bson.M{"memberId": memberID}, opts)
}
