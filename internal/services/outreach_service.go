package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

var _ OutreachService = (*OutreachServiceImpl)(nil)

// OutreachServiceImpl records staff contact with at-risk members
type OutreachServiceImpl struct {
	outreachRepo repositories.OutreachRepository
	memberRepo   repositories.MemberRepository
	now          func() time.Time
}

// NewOutreachService creates a new OutreachServiceImpl
func NewOutreachService(outreachRepo repositories.OutreachRepository, memberRepo repositories.MemberRepository) *OutreachServiceImpl {
	return &OutreachServiceImpl{
		outreachRepo: outreachRepo,
		memberRepo:   memberRepo,
		now:          time.Now,
	}
}

// Log appends an outreach action for an existing member
func (s *OutreachServiceImpl) Log(ctx context.Context, action *models.OutreachAction) error {
	action.ActionType = strings.ToLower(strings.TrimSpace(action.ActionType))
	if !models.IsValidOutreachType(action.ActionType) {
		return fmt.Errorf("%w: unknown action type %q", ErrValidation, action.ActionType)
	}
	if _, err := s.memberRepo.FindByID(ctx, action.MemberID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to load member: %w", err)
	}
	action.CreatedAt = s.now()
	if err := s.outreachRepo.Create(ctx, action); err != nil {
		return fmt.Errorf("failed to log outreach: %w", err)
	}
	slog.Info("Outreach logged", "memberId", action.MemberID, "staffId", action.StaffID, "type", action.ActionType)
	return nil
}

// ListForMember returns the outreach trail for a member, newest first
func (s *OutreachServiceImpl) ListForMember(ctx context.Context, memberID primitive.ObjectID) ([]*models.OutreachAction, error) {
	return s.outreachRepo.FindByMemberID(ctx, memberID)
}
