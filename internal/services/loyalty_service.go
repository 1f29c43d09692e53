package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pulsefit/retention-backend/internal/metrics"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// DefaultPointsPerVisit is awarded on each check-in unless configured otherwise
const DefaultPointsPerVisit = 10

var _ LoyaltyService = (*LoyaltyServiceImpl)(nil)

// LoyaltyServiceImpl handles the offer catalog, redemptions and visit points
type LoyaltyServiceImpl struct {
	memberRepo          repositories.MemberRepository
	offerRepo           repositories.LoyaltyOfferRepository
	redemptionRepo      repositories.RedemptionRepository
	pointTransaction    repositories.PointTransactionRepository
	visitRepo           repositories.VisitRepository
	notificationService NotificationService
	pointsPerVisit      int
	now                 func() time.Time
}

// NewLoyaltyService creates a new LoyaltyServiceImpl
func NewLoyaltyService(store *repositories.Store, notificationService NotificationService, pointsPerVisit int) *LoyaltyServiceImpl {
	if pointsPerVisit <= 0 {
		pointsPerVisit = DefaultPointsPerVisit
	}
	return &LoyaltyServiceImpl{
		memberRepo:          store.Members,
		offerRepo:           store.Offers,
		redemptionRepo:      store.Redemptions,
		pointTransaction:    store.PointTransaction,
		visitRepo:           store.Visits,
		notificationService: notificationService,
		pointsPerVisit:      pointsPerVisit,
		now:                 time.Now,
	}
}

// ListOffers returns the catalog; activeOnly hides inactive and expired offers
func (s *LoyaltyServiceImpl) ListOffers(ctx context.Context, activeOnly bool) ([]*models.LoyaltyOffer, error) {
	offers, err := s.offerRepo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to load offers: %w", err)
	}
	if !activeOnly {
		return offers, nil
	}
	now := s.now()
	available := make([]*models.LoyaltyOffer, 0, len(offers))
	for _, o := range offers {
		if o.IsAvailable(now) {
			available = append(available, o)
		}
	}
	return available, nil
}

func validateOffer(offer *models.LoyaltyOffer) error {
	if strings.TrimSpace(offer.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if offer.Points <= 0 {
		return fmt.Errorf("%w: points must be greater than zero", ErrValidation)
	}
	return nil
}

// CreateOffer adds an offer to the catalog
func (s *LoyaltyServiceImpl) CreateOffer(ctx context.Context, offer *models.LoyaltyOffer) error {
	if err := validateOffer(offer); err != nil {
		return err
	}
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	slog.Info("Loyalty offer created", "offerId", offer.ID, "title", offer.Title, "points", offer.Points)
	return nil
}

// UpdateOffer replaces an existing offer
func (s *LoyaltyServiceImpl) UpdateOffer(ctx context.Context, offer *models.LoyaltyOffer) error {
	if err := validateOffer(offer); err != nil {
		return err
	}
	existing, err := s.offerRepo.FindByID(ctx, offer.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrOfferNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load offer: %w", err)
	}
	offer.CreatedAt = existing.CreatedAt
	offer.CreatedBy = existing.CreatedBy
	if err := s.offerRepo.Update(ctx, offer); err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}
	return nil
}

// DeactivateOffer hides an offer from members; past redemptions are kept
func (s *LoyaltyServiceImpl) DeactivateOffer(ctx context.Context, id primitive.ObjectID) error {
	offer, err := s.offerRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrOfferNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load offer: %w", err)
	}
	offer.IsActive = false
	if err := s.offerRepo.Update(ctx, offer); err != nil {
		return fmt.Errorf("failed to deactivate offer: %w", err)
	}
	return nil
}

// Redeem exchanges points for an offer. The deduction is conditional on the balance,
// so concurrent redemptions cannot overdraw it.
func (s *LoyaltyServiceImpl) Redeem(ctx context.Context, memberID, offerID primitive.ObjectID) (*RedeemResult, error) {
	result, err := s.redeem(ctx, memberID, offerID)
	metrics.RecordRedemption(redemptionOutcome(err))
	return result, err
}

func redemptionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, ErrOfferNotFound), errors.Is(err, ErrOfferInactive):
		return "unavailable"
	}
	return "error"
}

func (s *LoyaltyServiceImpl) redeem(ctx context.Context, memberID, offerID primitive.ObjectID) (*RedeemResult, error) {
	now := s.now()

	offer, err := s.offerRepo.FindByID(ctx, offerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load offer: %w", err)
	}
	if !offer.IsAvailable(now) {
		return nil, ErrOfferInactive
	}

	_, err = s.redemptionRepo.FindByMemberAndOffer(ctx, memberID, offerID)
	if err == nil {
		return nil, ErrAlreadyRedeemed
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check previous redemptions: %w", err)
	}

	member, err := s.memberRepo.FindByID(ctx, memberID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member.LoyaltyPoints < offer.Points {
		return nil, ErrInsufficientPoints
	}

	balance, err := s.memberRepo.AdjustPoints(ctx, memberID, -offer.Points)
	if errors.Is(err, repositories.ErrInsufficientBalance) {
		return nil, ErrInsufficientPoints
	}
	if err != nil {
		return nil, fmt.Errorf("failed to deduct points: %w", err)
	}

	redemption := &models.OfferRedemption{
		MemberID:    memberID,
		OfferID:     offerID,
		OfferTitle:  offer.Title,
		PointsSpent: offer.Points,
		RedeemedAt:  now,
	}
	if err := s.redemptionRepo.Create(ctx, redemption); err != nil {
		// give the points back before reporting
		if _, refundErr := s.memberRepo.AdjustPoints(ctx, memberID, offer.Points); refundErr != nil {
			slog.Error("Redeem: CRITICAL: failed to refund points", "error", refundErr, "memberId", memberID, "points", offer.Points)
		}
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrAlreadyRedeemed
		}
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	s.writeLedger(ctx, &models.PointTransaction{
		MemberID:     memberID,
		Delta:        -offer.Points,
		BalanceAfter: balance,
		Reason:       models.PointReasonRedemption,
		ReferenceID:  redemption.ID,
		CreatedAt:    now,
	})

	if s.notificationService != nil {
		message := fmt.Sprintf("You redeemed %q for %d points. Show this at the front desk to claim it.", offer.Title, offer.Points)
		if _, err := s.notificationService.Notify(ctx, memberID, models.NotificationReward, "Reward redeemed", message); err != nil {
			slog.Warn("Redeem: failed to queue notification", "error", err, "memberId", memberID)
		}
	}

	slog.Info("Offer redeemed", "memberId", memberID, "offerId", offerID, "pointsSpent", offer.Points, "balance", balance)
	return &RedeemResult{Redemption: redemption, Balance: balance}, nil
}

// writeLedger records a point movement; the balance is already authoritative so failures are logged
func (s *LoyaltyServiceImpl) writeLedger(ctx context.Context, tx *models.PointTransaction) {
	if err := s.pointTransaction.Create(ctx, tx); err != nil {
		slog.Error("Failed to create point transaction record", "error", err, "memberId", tx.MemberID, "delta", tx.Delta)
	}
}

// RecordVisit stamps a check-in and awards visit points
func (s *LoyaltyServiceImpl) RecordVisit(ctx context.Context, memberID, recordedBy primitive.ObjectID, at time.Time) (*VisitResult, error) {
	if at.IsZero() {
		at = s.now()
	}
	if _, err := s.memberRepo.FindByID(ctx, memberID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to load member: %w", err)
	}

	if err := s.memberRepo.UpdateLastVisit(ctx, memberID, at); err != nil {
		return nil, fmt.Errorf("failed to update last visit: %w", err)
	}
	balance, err := s.memberRepo.AdjustPoints(ctx, memberID, s.pointsPerVisit)
	if err != nil {
		return nil, fmt.Errorf("failed to award visit points: %w", err)
	}

	visit := &models.Visit{
		MemberID:      memberID,
		CheckedInAt:   at,
		PointsAwarded: s.pointsPerVisit,
		RecordedBy:    recordedBy,
	}
	if err := s.visitRepo.Create(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to record visit: %w", err)
	}

	s.writeLedger(ctx, &models.PointTransaction{
		MemberID:     memberID,
		Delta:        s.pointsPerVisit,
		BalanceAfter: balance,
		Reason:       models.PointReasonVisit,
		ReferenceID:  visit.ID,
		CreatedAt:    at,
	})

	slog.Info("Visit recorded", "memberId", memberID, "pointsAdded", s.pointsPerVisit, "balance", balance)
	return &VisitResult{Visit: visit, Balance: balance}, nil
}

// History returns the member's point ledger, newest first
func (s *LoyaltyServiceImpl) History(ctx context.Context, memberID primitive.ObjectID) ([]*models.PointTransaction, error) {
	return s.pointTransaction.FindByMemberID(ctx, memberID)
}

// Redemptions returns the member's redemptions, newest first
func (s *LoyaltyServiceImpl) Redemptions(ctx context.Context, memberID primitive.ObjectID) ([]*models.OfferRedemption, error) {
	return s.redemptionRepo.FindByMember(ctx, memberID)
}
