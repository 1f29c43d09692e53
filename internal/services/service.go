package services

import (
	"context"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChurnEmailService defines the churn email lifecycle: generation, review and dispatch
type ChurnEmailService interface {
	// AtRiskMembers lists members with no visit inside AtRiskThreshold, with their risk band
	AtRiskMembers(ctx context.Context) ([]AtRiskMember, error)

	// Generate drafts a pending email for a member. It returns the existing pending email
	// (created=false) when one already exists for the member's current band.
	Generate(ctx context.Context, memberID primitive.ObjectID, staffID *primitive.ObjectID) (email *models.ChurnEmail, created bool, err error)

	// ScanAtRisk generates emails for at-risk members whose band changed since their last email
	ScanAtRisk(ctx context.Context) (*ScanResult, error)

	// List returns the review queue newest first; empty status returns everything
	List(ctx context.Context, status models.ChurnEmailStatus) ([]*models.ChurnEmail, error)

	Get(ctx context.Context, id primitive.ObjectID) (*models.ChurnEmail, error)

	// Approve moves a pending email to approved
	Approve(ctx context.Context, id, staffID primitive.ObjectID) (*models.ChurnEmail, error)

	// Reject moves a pending email to rejected
	Reject(ctx context.Context, id, staffID primitive.ObjectID) (*models.ChurnEmail, error)

	// Send delivers an approved email and marks it sent. A failed delivery leaves it approved.
	Send(ctx context.Context, id, staffID primitive.ObjectID) (*models.ChurnEmail, *SendResult, error)

	// MarkSent moves an approved email to sent without delivering it
	MarkSent(ctx context.Context, id primitive.ObjectID) (*models.ChurnEmail, error)
}

// EmailService defines tracked outreach delivery
type EmailService interface {
	// Send renders and dispatches one email. Provider failures are reported in the
	// result; the error is reserved for requests that could not be attempted.
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// TrackingService defines the public tracking endpoints and engagement reporting
type TrackingService interface {
	// TrackClick logs a click when the id resolves and always returns a redirect URL
	TrackClick(ctx context.Context, trackingID, dest string, meta RequestMeta) string
	ViewTour(ctx context.Context, trackingID string, meta RequestMeta) (*ProspectIdentity, error)
	// Unsubscribe suppresses the address behind trackingID and returns it
	Unsubscribe(ctx context.Context, trackingID string) (string, error)
	Engagement(ctx context.Context, email string) (*EngagementSummary, error)
}

// LoyaltyService defines offers, redemptions and visit points
type LoyaltyService interface {
	ListOffers(ctx context.Context, activeOnly bool) ([]*models.LoyaltyOffer, error)
	CreateOffer(ctx context.Context, offer *models.LoyaltyOffer) error
	UpdateOffer(ctx context.Context, offer *models.LoyaltyOffer) error
	DeactivateOffer(ctx context.Context, id primitive.ObjectID) error
	Redeem(ctx context.Context, memberID, offerID primitive.ObjectID) (*RedeemResult, error)
	RecordVisit(ctx context.Context, memberID, recordedBy primitive.ObjectID, at time.Time) (*VisitResult, error)
	History(ctx context.Context, memberID primitive.ObjectID) ([]*models.PointTransaction, error)
	Redemptions(ctx context.Context, memberID primitive.ObjectID) ([]*models.OfferRedemption, error)
}

// MemberService defines member lookups for staff
type MemberService interface {
	ListMembers(ctx context.Context, page, limit int) ([]*models.Member, error)
	GetMember(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
}

// AuthService defines registration and login
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
}

// OutreachService defines the staff outreach audit trail
type OutreachService interface {
	Log(ctx context.Context, action *models.OutreachAction) error
	ListForMember(ctx context.Context, memberID primitive.ObjectID) ([]*models.OutreachAction, error)
}

// NotificationService defines member in-app notifications
type NotificationService interface {
	Notify(ctx context.Context, memberID primitive.ObjectID, notificationType, title, message string) (*models.Notification, error)
	ListForMember(ctx context.Context, memberID primitive.ObjectID, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, memberID primitive.ObjectID) error
}

// WorkoutService defines generated workout plans
type WorkoutService interface {
	Generate(ctx context.Context, memberID primitive.ObjectID, req WorkoutRequest) (*models.WorkoutPlan, error)
	ListForMember(ctx context.Context, memberID primitive.ObjectID) ([]*models.WorkoutPlan, error)
}

// EmailTemplateService defines staff-managed outreach templates
type EmailTemplateService interface {
	List(ctx context.Context) ([]*models.EmailTemplate, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.EmailTemplate, error)
	Create(ctx context.Context, template *models.EmailTemplate) error
	Update(ctx context.Context, template *models.EmailTemplate) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AtRiskMember is a member row on the staff at-risk list
type AtRiskMember struct {
	*models.Member
	Risk               RiskAssessment `json:"risk"`
	DaysSinceLastVisit *int           `json:"daysSinceLastVisit"`
}

// ScanResult summarises one ScanAtRisk run
type ScanResult struct {
	Scanned   int `json:"scanned"`
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// SendRequest is an outbound tracked email. Either Subject and Content or TemplateID is required.
type SendRequest struct {
	To           string `json:"to" binding:"required,email"`
	Name         string `json:"name"`
	Subject      string `json:"subject"`
	Content      string `json:"content"`
	TemplateID   string `json:"templateId"`
	Provider     string `json:"provider"`
	ChurnEmailID string `json:"-"`
}

// SendResult reports the outcome of a dispatch attempt
type SendResult struct {
	Success    bool   `json:"success"`
	TrackingID string `json:"trackingId,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RequestMeta is the client information captured with tracking events
type RequestMeta struct {
	UserAgent string
	IPAddress string
	Referer   string
	// Throttled requests are still answered but leave no interaction row
	Throttled bool
}

// ProspectIdentity is returned to the virtual tour page
type ProspectIdentity struct {
	TrackingID string `json:"trackingId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Subject    string `json:"subject"`
}

// Engagement levels
const (
	EngagementNone = "none"
	EngagementCold = "cold"
	EngagementWarm = "warm"
	EngagementHot  = "hot"
)

// EngagementSummary aggregates a prospect's interaction log
type EngagementSummary struct {
	ProspectEmail    string                     `json:"prospectEmail"`
	EmailsSent       int                        `json:"emailsSent"`
	LinkClicks       int                        `json:"linkClicks"`
	TourViews        int                        `json:"tourViews"`
	TrackingIDs      []string                   `json:"trackingIds"`
	FirstInteraction *time.Time                 `json:"firstInteraction,omitempty"`
	LastInteraction  *time.Time                 `json:"lastInteraction,omitempty"`
	EngagementLevel  string                     `json:"engagementLevel"`
	Interactions     []*models.EmailInteraction `json:"interactions"`
}

// RedeemResult is returned after a successful redemption
type RedeemResult struct {
	Redemption *models.OfferRedemption `json:"redemption"`
	Balance    int                     `json:"balance"`
}

// VisitResult is returned after a check-in
type VisitResult struct {
	Visit   *models.Visit `json:"visit"`
	Balance int           `json:"balance"`
}

// WorkoutRequest is a member's plan request
type WorkoutRequest struct {
	Goal         string `json:"goal" binding:"required"`
	FitnessLevel string `json:"fitnessLevel" binding:"required,oneof=beginner intermediate advanced"`
	DaysPerWeek  int    `json:"daysPerWeek" binding:"required,min=1,max=7"`
	Equipment    string `json:"equipment"`
}
