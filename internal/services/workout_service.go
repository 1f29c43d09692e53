package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"github.com/pulsefit/retention-backend/pkg/genai"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

var _ WorkoutService = (*WorkoutServiceImpl)(nil)

// WorkoutServiceImpl generates and stores workout plans
type WorkoutServiceImpl struct {
	memberRepo repositories.MemberRepository
	planRepo   repositories.WorkoutPlanRepository
	generator  genai.Generator
	now        func() time.Time
}

// NewWorkoutService creates a new WorkoutServiceImpl
func NewWorkoutService(memberRepo repositories.MemberRepository, planRepo repositories.WorkoutPlanRepository, generator genai.Generator) *WorkoutServiceImpl {
	return &WorkoutServiceImpl{
		memberRepo: memberRepo,
		planRepo:   planRepo,
		generator:  generator,
		now:        time.Now,
	}
}

// Generate drafts a plan for the member and stores it
func (s *WorkoutServiceImpl) Generate(ctx context.Context, memberID primitive.ObjectID, req WorkoutRequest) (*models.WorkoutPlan, error) {
	if req.DaysPerWeek < 1 || req.DaysPerWeek > 7 {
		return nil, fmt.Errorf("%w: daysPerWeek must be between 1 and 7", ErrValidation)
	}
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}

	draft, err := s.generator.GenerateWorkoutPlan(ctx, genai.WorkoutInput{
		FirstName:    member.FirstName,
		Goal:         req.Goal,
		FitnessLevel: req.FitnessLevel,
		DaysPerWeek:  req.DaysPerWeek,
		Equipment:    req.Equipment,
	})
	if err != nil {
		slog.Error("Workout generation failed", "error", err, "memberId", memberID, "generator", s.generator.Name())
		return nil, ErrGenerationFailed
	}

	plan := &models.WorkoutPlan{
		MemberID:     memberID,
		Title:        draft.Title,
		Goal:         req.Goal,
		FitnessLevel: req.FitnessLevel,
		DaysPerWeek:  req.DaysPerWeek,
		Sessions:     toWorkoutSessions(draft.Sessions),
		GeneratedBy:  s.generator.Name(),
		CreatedAt:    s.now(),
	}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save workout plan: %w", err)
	}
	return plan, nil
}

func toWorkoutSessions(sessions []genai.Session) []models.WorkoutSession {
	out := make([]models.WorkoutSession, 0, len(sessions))
	for _, s := range sessions {
		exercises := make([]models.Exercise, 0, len(s.Exercises))
		for _, e := range s.Exercises {
			exercises = append(exercises, models.Exercise{Name: e.Name, Sets: e.Sets, Reps: e.Reps, Rest: e.Rest})
		}
		out = append(out, models.WorkoutSession{Day: s.Day, Focus: s.Focus, Exercises: exercises})
	}
	return out
}

// ListForMember returns the member's plans, newest first
func (s *WorkoutServiceImpl) ListForMember(ctx context.Context, memberID primitive.ObjectID) ([]*models.WorkoutPlan, error) {
	return s.planRepo.FindByMemberID(ctx, memberID)
}
