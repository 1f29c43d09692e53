package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"github.com/pulsefit/retention-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthServiceImpl handles member registration and login
type AuthServiceImpl struct {
	memberRepo repositories.MemberRepository
	tokens     *jwt.SessionTokenService
	now        func() time.Time
}

// NewAuthService creates a new AuthServiceImpl
func NewAuthService(memberRepo repositories.MemberRepository, tokens *jwt.SessionTokenService) *AuthServiceImpl {
	return &AuthServiceImpl{
		memberRepo: memberRepo,
		tokens:     tokens,
		now:        time.Now,
	}
}

// Register creates a member account and signs it in. Self-registration always gets the member role.
func (s *AuthServiceImpl) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.FirstName) == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrValidation)
	}
	membershipType := strings.ToLower(strings.TrimSpace(req.MembershipType))
	if membershipType == "" {
		membershipType = models.MembershipBasic
	}
	if !models.IsValidMembershipType(membershipType) {
		return nil, fmt.Errorf("%w: unknown membership type %q", ErrValidation, req.MembershipType)
	}

	_, err := s.memberRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	member := &models.Member{
		Email:          email,
		PasswordHash:   string(hashedPassword),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Phone:          strings.TrimSpace(req.Phone),
		Role:           models.RoleMember,
		MembershipType: membershipType,
		JoinDate:       s.now(),
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	slog.Info("Member registered", "memberId", member.ID, "membershipType", member.MembershipType)
	return s.issue(member)
}

// Login verifies credentials and returns a session token
func (s *AuthServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	member, err := s.memberRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(member)
}

func (s *AuthServiceImpl) issue(member *models.Member) (*models.AuthResponse, error) {
	token, _, err := s.tokens.Issue(member.ID.Hex(), member.Email, string(member.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &models.AuthResponse{Token: token, Member: member}, nil
}
