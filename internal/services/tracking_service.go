package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

var _ TrackingService = (*TrackingServiceImpl)(nil)

// TrackingServiceImpl serves click, tour and unsubscribe events for sent emails
type TrackingServiceImpl struct {
	interactionRepo repositories.EmailInteractionRepository
	suppressionRepo repositories.SuppressionRepository
	baseURL         string
	now             func() time.Time
}

// NewTrackingService creates a new TrackingServiceImpl
func NewTrackingService(interactionRepo repositories.EmailInteractionRepository, suppressionRepo repositories.SuppressionRepository, baseURL string) *TrackingServiceImpl {
	return &TrackingServiceImpl{
		interactionRepo: interactionRepo,
		suppressionRepo: suppressionRepo,
		baseURL:         strings.TrimRight(baseURL, "/"),
		now:             time.Now,
	}
}

// resolve finds the email_sent row a tracking id was issued for
func (s *TrackingServiceImpl) resolve(ctx context.Context, trackingID string) (*models.EmailInteraction, error) {
	if strings.TrimSpace(trackingID) == "" {
		return nil, ErrTrackingNotFound
	}
	sent, err := s.interactionRepo.FindFirstByTrackingID(ctx, trackingID, models.InteractionEmailSent)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrTrackingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tracking id: %w", err)
	}
	return sent, nil
}

// record appends a follow-up interaction for a resolved send; failures are logged only
func (s *TrackingServiceImpl) record(ctx context.Context, sent *models.EmailInteraction, interactionType models.InteractionType, meta RequestMeta) {
	if meta.Throttled {
		slog.Debug("Skipping interaction for throttled request", "type", interactionType, "trackingId", sent.TrackingID)
		return
	}
	row := &models.EmailInteraction{
		ProspectEmail:   sent.ProspectEmail,
		ProspectName:    sent.ProspectName,
		InteractionType: interactionType,
		EmailSubject:    sent.EmailSubject,
		TrackingID:      sent.TrackingID,
		Metadata: models.InteractionMetadata{
			SchemaVersion: models.InteractionMetadataVersion,
			UserAgent:     meta.UserAgent,
			IPAddress:     meta.IPAddress,
			Referer:       meta.Referer,
			ChurnEmailID:  sent.Metadata.ChurnEmailID,
		},
		CreatedAt: s.now(),
	}
	if err := s.interactionRepo.Create(ctx, row); err != nil {
		slog.Error("Failed to log tracking interaction", "error", err, "type", interactionType, "trackingId", sent.TrackingID)
	}
}

// TrackClick logs a link_clicked row for a known tracking id and picks the redirect target.
// Unknown ids still get a redirect to the generic tour page.
func (s *TrackingServiceImpl) TrackClick(ctx context.Context, trackingID, dest string, meta RequestMeta) string {
	sent, err := s.resolve(ctx, trackingID)
	if err != nil {
		if !errors.Is(err, ErrTrackingNotFound) {
			slog.Error("TrackClick: lookup failed", "error", err, "trackingId", trackingID)
		}
		return s.baseURL + "/virtual-tour"
	}

	s.record(ctx, sent, models.InteractionLinkClicked, meta)
	if dest == "home" {
		return s.baseURL + "/?ref=" + url.QueryEscape(sent.TrackingID)
	}
	return s.baseURL + "/virtual-tour/" + url.PathEscape(sent.TrackingID)
}

// ViewTour logs a tour_viewed row and returns who the tour is for
func (s *TrackingServiceImpl) ViewTour(ctx context.Context, trackingID string, meta RequestMeta) (*ProspectIdentity, error) {
	sent, err := s.resolve(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, sent, models.InteractionTourViewed, meta)
	return &ProspectIdentity{
		TrackingID: sent.TrackingID,
		Email:      sent.ProspectEmail,
		Name:       sent.ProspectName,
		Subject:    sent.EmailSubject,
	}, nil
}

// Unsubscribe adds the prospect behind trackingID to the suppression list
func (s *TrackingServiceImpl) Unsubscribe(ctx context.Context, trackingID string) (string, error) {
	sent, err := s.resolve(ctx, trackingID)
	if err != nil {
		return "", err
	}
	entry := &models.SuppressionEntry{
		Email:      sent.ProspectEmail,
		Reason:     "unsubscribe_link",
		TrackingID: sent.TrackingID,
		CreatedAt:  s.now(),
	}
	if err := s.suppressionRepo.Add(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to add suppression: %w", err)
	}
	slog.Info("Recipient unsubscribed", "email", sent.ProspectEmail, "trackingId", sent.TrackingID)
	return sent.ProspectEmail, nil
}

// Engagement summarises every interaction logged for a prospect
func (s *TrackingServiceImpl) Engagement(ctx context.Context, email string) (*EngagementSummary, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	rows, err := s.interactionRepo.FindByProspectEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions: %w", err)
	}
	return summarizeEngagement(email, rows), nil
}

func summarizeEngagement(email string, rows []*models.EmailInteraction) *EngagementSummary {
	summary := &EngagementSummary{
		ProspectEmail:   email,
		TrackingIDs:     []string{},
		EngagementLevel: EngagementNone,
		Interactions:    rows,
	}
	if summary.Interactions == nil {
		summary.Interactions = []*models.EmailInteraction{}
	}

	seen := make(map[string]bool)
	for _, row := range rows {
		switch row.InteractionType {
		case models.InteractionEmailSent:
			summary.EmailsSent++
		case models.InteractionLinkClicked:
			summary.LinkClicks++
		case models.InteractionTourViewed:
			summary.TourViews++
		}
		if row.TrackingID != "" && !seen[row.TrackingID] {
			seen[row.TrackingID] = true
			summary.TrackingIDs = append(summary.TrackingIDs, row.TrackingID)
		}
		created := row.CreatedAt
		if summary.FirstInteraction == nil || created.Before(*summary.FirstInteraction) {
			summary.FirstInteraction = &created
		}
		if summary.LastInteraction == nil || created.After(*summary.LastInteraction) {
			summary.LastInteraction = &created
		}
	}

	switch {
	case summary.TourViews > 0:
		summary.EngagementLevel = EngagementHot
	case summary.LinkClicks > 0:
		summary.EngagementLevel = EngagementWarm
	case len(rows) > 0:
		summary.EngagementLevel = EngagementCold
	}
	return summary
}
