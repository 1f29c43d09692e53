package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ MemberService = (*MemberServiceImpl)(nil)

// MemberServiceImpl handles member lookups
type MemberServiceImpl struct {
	memberRepo repositories.MemberRepository
}

// NewMemberService creates a new MemberServiceImpl
func NewMemberService(memberRepo repositories.MemberRepository) *MemberServiceImpl {
	return &MemberServiceImpl{
		memberRepo: memberRepo,
	}
}

// ListMembers retrieves members with pagination
func (s *MemberServiceImpl) ListMembers(ctx context.Context, page, limit int) ([]*models.Member, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.memberRepo.FindAll(ctx, page, limit)
}

// GetMember retrieves a member by ID
func (s *MemberServiceImpl) GetMember(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	member, err := s.memberRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	return member, nil
}
