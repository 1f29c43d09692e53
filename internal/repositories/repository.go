package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches the query.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a conditional update finds the record in an unexpected state.
	ErrConflict = errors.New("record state changed")
	// ErrInsufficientBalance is returned when a point deduction would take a balance below zero.
	ErrInsufficientBalance = errors.New("insufficient point balance")
)

// MemberRepository defines the interface for member data operations
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Member, error)
	// FindAtRisk returns role=member accounts that never visited or last visited before cutoff.
	FindAtRisk(ctx context.Context, cutoff time.Time) ([]*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	UpdateLastVisit(ctx context.Context, id primitive.ObjectID, at time.Time) error
	// AdjustPoints applies delta and returns the new balance. Negative deltas only apply
	// while the balance covers them, otherwise ErrInsufficientBalance.
	AdjustPoints(ctx context.Context, id primitive.ObjectID, delta int) (int, error)
	Count(ctx context.Context) (int64, error)
}

// ChurnEmailRepository defines the interface for churn email operations
type ChurnEmailRepository interface {
	Create(ctx context.Context, email *models.ChurnEmail) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChurnEmail, error)
	// FindAll lists emails newest first; an empty status returns every record.
	FindAll(ctx context.Context, status models.ChurnEmailStatus) ([]*models.ChurnEmail, error)
	FindLatestByMember(ctx context.Context, memberID primitive.ObjectID) (*models.ChurnEmail, error)
	// UpdateStatus applies update only while the stored status still equals from, otherwise ErrConflict.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.ChurnEmailStatus, update models.ChurnEmailUpdate) (*models.ChurnEmail, error)
	// ClaimDispatch stamps dispatchingAt on an approved email that is unclaimed or whose claim predates
	// staleBefore. Any other state is ErrConflict. Moving the email to sent clears the claim.
	ClaimDispatch(ctx context.Context, id primitive.ObjectID, at, staleBefore time.Time) (*models.ChurnEmail, error)
	ReleaseDispatch(ctx context.Context, id primitive.ObjectID) error
}

// EmailInteractionRepository defines the append-only interaction log
type EmailInteractionRepository interface {
	Create(ctx context.Context, interaction *models.EmailInteraction) error
	// FindFirstByTrackingID returns the oldest row of the given type for a tracking id.
	FindFirstByTrackingID(ctx context.Context, trackingID string, interactionType models.InteractionType) (*models.EmailInteraction, error)
	FindByTrackingID(ctx context.Context, trackingID string) ([]*models.EmailInteraction, error)
	FindByProspectEmail(ctx context.Context, email string) ([]*models.EmailInteraction, error)
}

// LoyaltyOfferRepository defines the interface for the offer catalog
type LoyaltyOfferRepository interface {
	Create(ctx context.Context, offer *models.LoyaltyOffer) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.LoyaltyOffer, error)
	FindAll(ctx context.Context, activeOnly bool) ([]*models.LoyaltyOffer, error)
	Update(ctx context.Context, offer *models.LoyaltyOffer) error
	Count(ctx context.Context) (int64, error)
}

// RedemptionRepository defines the interface for offer redemptions
type RedemptionRepository interface {
	// Create returns ErrDuplicate when the member already redeemed the offer.
	Create(ctx context.Context, redemption *models.OfferRedemption) error
	FindByMemberAndOffer(ctx context.Context, memberID, offerID primitive.ObjectID) (*models.OfferRedemption, error)
	FindByMember(ctx context.Context, memberID primitive.ObjectID) ([]*models.OfferRedemption, error)
}

// PointTransactionRepository defines the interface for the loyalty ledger
type PointTransactionRepository interface {
	Create(ctx context.Context, transaction *models.PointTransaction) error
	FindByMemberID(ctx context.Context, memberID primitive.ObjectID) ([]*models.PointTransaction, error)
}

// VisitRepository defines the interface for check-in records
type VisitRepository interface {
	Create(ctx context.Context, visit *models.Visit) error
	FindByMemberID(ctx context.Context, memberID primitive.ObjectID, limit int) ([]*models.Visit, error)
}

// OutreachRepository defines the interface for the outreach audit trail
type OutreachRepository interface {
	Create(ctx context.Context, action *models.OutreachAction) error
	FindByMemberID(ctx context.Context, memberID primitive.ObjectID) ([]*models.OutreachAction, error)
}

// NotificationRepository defines the interface for member notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByMember(ctx context.Context, memberID primitive.ObjectID, unreadOnly bool) ([]*models.Notification, error)
	// MarkRead only touches notifications owned by memberID.
	MarkRead(ctx context.Context, id, memberID primitive.ObjectID) error
}

// WorkoutPlanRepository defines the interface for generated workout plans
type WorkoutPlanRepository interface {
	Create(ctx context.Context, plan *models.WorkoutPlan) error
	FindByMemberID(ctx context.Context, memberID primitive.ObjectID) ([]*models.WorkoutPlan, error)
}

// EmailTemplateRepository defines the interface for outreach templates
type EmailTemplateRepository interface {
	Create(ctx context.Context, template *models.EmailTemplate) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.EmailTemplate, error)
	FindByName(ctx context.Context, name string) (*models.EmailTemplate, error)
	FindAll(ctx context.Context) ([]*models.EmailTemplate, error)
	Update(ctx context.Context, template *models.EmailTemplate) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SuppressionRepository defines the interface for the unsubscribe list
type SuppressionRepository interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
	// Add is idempotent per address.
	Add(ctx context.Context, entry *models.SuppressionEntry) error
	FindAll(ctx context.Context) ([]*models.SuppressionEntry, error)
}

// Store bundles every repository the services depend on.
type Store struct {
	Members          MemberRepository
	ChurnEmails      ChurnEmailRepository
	Interactions     EmailInteractionRepository
	Offers           LoyaltyOfferRepository
	Redemptions      RedemptionRepository
	PointTransaction PointTransactionRepository
	Visits           VisitRepository
	Outreach         OutreachRepository
	Notifications    NotificationRepository
	WorkoutPlans     WorkoutPlanRepository
	EmailTemplates   EmailTemplateRepository
	Suppressions     SuppressionRepository
}
