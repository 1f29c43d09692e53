package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulsefit/retention-backend/internal/metrics"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"github.com/pulsefit/retention-backend/pkg/genai"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

var _ ChurnEmailService = (*ChurnEmailServiceImpl)(nil)

// dispatchClaimTTL bounds how long an unfinished Send blocks another attempt
const dispatchClaimTTL = 5 * time.Minute

// ChurnEmailServiceImpl drives churn emails from generation through dispatch
type ChurnEmailServiceImpl struct {
	memberRepo     repositories.MemberRepository
	churnEmailRepo repositories.ChurnEmailRepository
	generator      genai.Generator
	emailService   EmailService
	now            func() time.Time
}

// NewChurnEmailService creates a new ChurnEmailServiceImpl
func NewChurnEmailService(
	memberRepo repositories.MemberRepository,
	churnEmailRepo repositories.ChurnEmailRepository,
	generator genai.Generator,
	emailService EmailService,
) *ChurnEmailServiceImpl {
	return &ChurnEmailServiceImpl{
		memberRepo:     memberRepo,
		churnEmailRepo: churnEmailRepo,
		generator:      generator,
		emailService:   emailService,
		now:            time.Now,
	}
}

// AtRiskMembers returns members past AtRiskThreshold with their risk band
func (s *ChurnEmailServiceImpl) AtRiskMembers(ctx context.Context) ([]AtRiskMember, error) {
	now := s.now()
	members, err := s.memberRepo.FindAtRisk(ctx, now.Add(-AtRiskThreshold))
	if err != nil {
		slog.Error("Failed to load at-risk members", "error", err)
		return nil, fmt.Errorf("failed to load at-risk members: %w", err)
	}

	out := make([]AtRiskMember, 0, len(members))
	for _, m := range members {
		row := AtRiskMember{Member: m, Risk: ClassifyRisk(m.LastVisit, now)}
		if m.LastVisit != nil {
			days := DaysSince(*m.LastVisit, now)
			row.DaysSinceLastVisit = &days
		}
		out = append(out, row)
	}
	return out, nil
}

// snapshot freezes the member fields the email was written from
func snapshot(m *models.Member, risk RiskAssessment, now time.Time) models.MemberSnapshot {
	snap := models.MemberSnapshot{
		Version:        models.MemberSnapshotVersion,
		MemberID:       m.ID.Hex(),
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Email:          m.Email,
		MembershipType: m.MembershipType,
		LoyaltyPoints:  m.LoyaltyPoints,
		JoinDate:       m.JoinDate,
		RiskLevel:      risk.Level,
		RiskPercentage: risk.Percentage,
		CapturedAt:     now,
	}
	if m.LastVisit != nil {
		lv := *m.LastVisit
		days := DaysSince(lv, now)
		snap.LastVisit = &lv
		snap.DaysSinceLastVisit = &days
	}
	return snap
}

// latestFor returns the member's most recent churn email, or nil
func (s *ChurnEmailServiceImpl) latestFor(ctx context.Context, memberID primitive.ObjectID) (*models.ChurnEmail, error) {
	latest, err := s.churnEmailRepo.FindLatestByMember(ctx, memberID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest churn email: %w", err)
	}
	return latest, nil
}

// Generate drafts a churn email for memberID
func (s *ChurnEmailServiceImpl) Generate(ctx context.Context, memberID primitive.ObjectID, staffID *primitive.ObjectID) (*models.ChurnEmail, bool, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, false, ErrMemberNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load member: %w", err)
	}

	latest, err := s.latestFor(ctx, memberID)
	if err != nil {
		return nil, false, err
	}
	return s.generateFor(ctx, member, latest, staffID)
}

func (s *ChurnEmailServiceImpl) generateFor(ctx context.Context, member *models.Member, latest *models.ChurnEmail, staffID *primitive.ObjectID) (*models.ChurnEmail, bool, error) {
	now := s.now()
	risk := ClassifyRisk(member.LastVisit, now)

	var previousBand models.RiskLevel
	if latest != nil {
		if latest.Status == models.ChurnEmailPending && latest.CurrentRiskBand == risk.Level {
			return latest, false, nil
		}
		previousBand = latest.CurrentRiskBand
	}

	snap := snapshot(member, risk, now)
	draft, err := s.generator.GenerateChurnEmail(ctx, genai.ChurnEmailInput{
		FirstName:          member.FirstName,
		LastName:           member.LastName,
		MembershipType:     member.MembershipType,
		LoyaltyPoints:      member.LoyaltyPoints,
		JoinDate:           member.JoinDate,
		DaysSinceLastVisit: snap.DaysSinceLastVisit,
		RiskLevel:          string(risk.Level),
		PreviousRiskLevel:  string(previousBand),
	})
	if err != nil {
		slog.Error("Churn email generation failed", "error", err, "memberId", member.ID, "generator", s.generator.Name())
		return nil, false, ErrGenerationFailed
	}

	email := &models.ChurnEmail{
		MemberID:         member.ID,
		StaffID:          staffID,
		Subject:          draft.Subject,
		Content:          draft.Content,
		RiskLevel:        risk.Level,
		CurrentRiskBand:  risk.Level,
		PreviousRiskBand: previousBand,
		MemberProfile:    snap,
		Status:           models.ChurnEmailPending,
		GeneratedBy:      s.generator.Name(),
		CreatedAt:        now,
	}
	if err := s.churnEmailRepo.Create(ctx, email); err != nil {
		return nil, false, fmt.Errorf("failed to store churn email: %w", err)
	}
	metrics.RecordChurnTransition(string(models.ChurnEmailPending))
	slog.Info("Churn email generated", "churnEmailId", email.ID, "memberId", member.ID, "riskLevel", risk.Level, "previousBand", previousBand)
	return email, true, nil
}

// ScanAtRisk generates an email for each at-risk member whose band moved since their latest
// email. Low-band members never get one. Per-member failures are counted, not returned.
func (s *ChurnEmailServiceImpl) ScanAtRisk(ctx context.Context) (*ScanResult, error) {
	now := s.now()
	members, err := s.memberRepo.FindAtRisk(ctx, now.Add(-AtRiskThreshold))
	if err != nil {
		return nil, fmt.Errorf("failed to load at-risk members: %w", err)
	}

	result := &ScanResult{}
	for _, member := range members {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++

		risk := ClassifyRisk(member.LastVisit, now)
		if risk.Level == models.RiskLow {
			result.Skipped++
			continue
		}
		latest, err := s.latestFor(ctx, member.ID)
		if err != nil {
			slog.Error("ScanAtRisk: failed to load latest email", "error", err, "memberId", member.ID)
			result.Failed++
			continue
		}
		if latest != nil && latest.CurrentRiskBand == risk.Level {
			result.Skipped++
			continue
		}
		if _, _, err := s.generateFor(ctx, member, latest, nil); err != nil {
			result.Failed++
			continue
		}
		result.Generated++
	}

	slog.Info("At-risk scan finished", "scanned", result.Scanned, "generated", result.Generated, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// List returns churn emails newest first
func (s *ChurnEmailServiceImpl) List(ctx context.Context, status models.ChurnEmailStatus) ([]*models.ChurnEmail, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.churnEmailRepo.FindAll(ctx, status)
}

// Get returns a single churn email
func (s *ChurnEmailServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*models.ChurnEmail, error) {
	email, err := s.churnEmailRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrChurnEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load churn email: %w", err)
	}
	return email, nil
}

// transition validates and applies a status change against the stored state
func (s *ChurnEmailServiceImpl) transition(ctx context.Context, current *models.ChurnEmail, update models.ChurnEmailUpdate) (*models.ChurnEmail, error) {
	if err := models.ValidateTransition(current.Status, update.Status); err != nil {
		slog.Warn("Rejected churn email transition", "churnEmailId", current.ID, "from", current.Status, "to", update.Status)
		return nil, err
	}

	updated, err := s.churnEmailRepo.UpdateStatus(ctx, current.ID, current.Status, update)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, ErrChurnEmailNotFound
	case errors.Is(err, repositories.ErrConflict):
		// another request moved it first
		return nil, fmt.Errorf("%w: status changed concurrently from %s", ErrInvalidTransition, current.Status)
	case err != nil:
		return nil, fmt.Errorf("failed to update churn email: %w", err)
	}

	metrics.RecordChurnTransition(string(update.Status))
	slog.Info("Churn email status changed", "churnEmailId", current.ID, "from", current.Status, "to", update.Status)
	return updated, nil
}

// Approve moves a pending email to approved
func (s *ChurnEmailServiceImpl) Approve(ctx context.Context, id, staffID primitive.ObjectID) (*models.ChurnEmail, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return s.transition(ctx, current, models.ChurnEmailUpdate{
		Status:     models.ChurnEmailApproved,
		StaffID:    &staffID,
		ApprovedAt: &now,
	})
}

// Reject moves a pending email to rejected
func (s *ChurnEmailServiceImpl) Reject(ctx context.Context, id, staffID primitive.ObjectID) (*models.ChurnEmail, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return s.transition(ctx, current, models.ChurnEmailUpdate{
		Status:     models.ChurnEmailRejected,
		StaffID:    &staffID,
		RejectedAt: &now,
	})
}

// MarkSent moves an approved email to sent
func (s *ChurnEmailServiceImpl) MarkSent(ctx context.Context, id primitive.ObjectID) (*models.ChurnEmail, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return s.transition(ctx, current, models.ChurnEmailUpdate{
		Status: models.ChurnEmailSent,
		SentAt: &now,
	})
}

// releaseDispatch lets a later Send retry; a failed release only delays that until the claim goes stale
func (s *ChurnEmailServiceImpl) releaseDispatch(ctx context.Context, id primitive.ObjectID) {
	if err := s.churnEmailRepo.ReleaseDispatch(ctx, id); err != nil {
		slog.Error("Failed to release churn email send claim", "error", err, "churnEmailId", id)
	}
}

// Send dispatches an approved email to its member and then marks it sent
func (s *ChurnEmailServiceImpl) Send(ctx context.Context, id, staffID primitive.ObjectID) (*models.ChurnEmail, *SendResult, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := models.ValidateTransition(current.Status, models.ChurnEmailSent); err != nil {
		return nil, nil, err
	}

	member, err := s.memberRepo.FindByID(ctx, current.MemberID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load member: %w", err)
	}

	claimedAt := s.now()
	_, err = s.churnEmailRepo.ClaimDispatch(ctx, current.ID, claimedAt, claimedAt.Add(-dispatchClaimTTL))
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, nil, ErrChurnEmailNotFound
	case errors.Is(err, repositories.ErrConflict):
		slog.Warn("Churn email send refused, delivery already claimed or status changed", "churnEmailId", current.ID, "staffId", staffID)
		return nil, nil, ErrDispatchInProgress
	case err != nil:
		return nil, nil, fmt.Errorf("failed to claim churn email for sending: %w", err)
	}

	result, err := s.emailService.Send(ctx, SendRequest{
		To:           member.Email,
		Name:         member.FirstName,
		Subject:      current.Subject,
		Content:      current.Content,
		ChurnEmailID: current.ID.Hex(),
	})
	if err != nil {
		s.releaseDispatch(ctx, current.ID)
		return current, &result, err
	}
	if !result.Success {
		slog.Warn("Churn email dispatch failed, leaving approved", "churnEmailId", current.ID, "provider", result.Provider, "error", result.Error)
		s.releaseDispatch(ctx, current.ID)
		return current, &result, fmt.Errorf("%w: %s", ErrDispatchFailed, result.Error)
	}

	now := s.now()
	updated, err := s.transition(ctx, current, models.ChurnEmailUpdate{
		Status:     models.ChurnEmailSent,
		SentAt:     &now,
		TrackingID: result.TrackingID,
	})
	if err != nil {
		// delivered but not recorded; the tracking id in the interaction log still links them
		slog.Error("Churn email delivered but status update failed", "error", err, "churnEmailId", current.ID, "trackingId", result.TrackingID, "staffId", staffID)
		return nil, &result, err
	}
	slog.Info("Churn email sent", "churnEmailId", current.ID, "staffId", staffID, "trackingId", result.TrackingID)
	return updated, &result, nil
}
