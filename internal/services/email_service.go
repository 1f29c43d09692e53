package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pulsefit/retention-backend/internal/metrics"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"github.com/pulsefit/retention-backend/pkg/mailer"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Content placeholders rewritten at send time
const (
	PlaceholderVirtualTourLink = "[VIRTUAL_TOUR_LINK]"
	PlaceholderProspectName    = "[PROSPECT_NAME]"
	PlaceholderUnsubscribeLink = "[UNSUBSCRIBE_LINK]"
	PlaceholderHomePageLink    = "[HOME_PAGE_LINK]"
)

var _ EmailService = (*EmailServiceImpl)(nil)

// EmailServiceImpl renders tracked emails and hands them to a mail provider
type EmailServiceImpl struct {
	dispatcher      *mailer.Dispatcher
	interactionRepo repositories.EmailInteractionRepository
	suppressionRepo repositories.SuppressionRepository
	templateRepo    repositories.EmailTemplateRepository
	baseURL         string
	from            string
	newTrackingID   func() string
	now             func() time.Time
}

// NewEmailService creates a new EmailServiceImpl
func NewEmailService(
	dispatcher *mailer.Dispatcher,
	interactionRepo repositories.EmailInteractionRepository,
	suppressionRepo repositories.SuppressionRepository,
	templateRepo repositories.EmailTemplateRepository,
	baseURL, from string,
) *EmailServiceImpl {
	return &EmailServiceImpl{
		dispatcher:      dispatcher,
		interactionRepo: interactionRepo,
		suppressionRepo: suppressionRepo,
		templateRepo:    templateRepo,
		baseURL:         strings.TrimRight(baseURL, "/"),
		from:            from,
		newTrackingID:   uuid.NewString,
		now:             time.Now,
	}
}

// Send validates the request, renders it with a fresh tracking id and dispatches it
func (s *EmailServiceImpl) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	req.To = strings.TrimSpace(req.To)
	if req.To == "" {
		return SendResult{Success: false, Error: "recipient is required"}, fmt.Errorf("%w: recipient is required", ErrValidation)
	}

	if req.TemplateID != "" {
		if err := s.applyTemplate(ctx, &req); err != nil {
			return SendResult{Success: false, Error: err.Error()}, err
		}
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Content) == "" {
		return SendResult{Success: false, Error: "subject and content are required"}, fmt.Errorf("%w: subject and content are required", ErrValidation)
	}

	provider, err := s.dispatcher.Resolve(req.Provider)
	if err != nil {
		return SendResult{Success: false, Error: err.Error()}, err
	}

	suppressed, err := s.suppressionRepo.IsSuppressed(ctx, req.To)
	if err != nil {
		return SendResult{Success: false, Error: "failed to check suppression list"}, fmt.Errorf("failed to check suppression list: %w", err)
	}
	if suppressed {
		slog.Info("Skipping email to suppressed recipient", "to", req.To)
		return SendResult{Success: false, Error: ErrRecipientSuppressed.Error()}, ErrRecipientSuppressed
	}

	trackingID := s.newTrackingID()
	subject := s.substitute(req.Subject, req.Name, trackingID)
	text := s.renderText(req.Content, req.Name, trackingID)

	msg := mailer.Message{
		From:    s.from,
		To:      req.To,
		Subject: subject,
		HTML:    TextToHTML(text),
		Text:    text,
	}
	messageID, err := provider.Send(ctx, msg)
	metrics.RecordEmailDispatch(provider.Name(), err == nil)
	if err != nil {
		slog.Error("Email dispatch failed", "error", err, "provider", provider.Name(), "to", req.To)
		return SendResult{Success: false, Provider: provider.Name(), Error: err.Error()}, nil
	}

	interaction := &models.EmailInteraction{
		ProspectEmail:   strings.ToLower(req.To),
		ProspectName:    req.Name,
		InteractionType: models.InteractionEmailSent,
		EmailSubject:    subject,
		TrackingID:      trackingID,
		Metadata: models.InteractionMetadata{
			SchemaVersion:     models.InteractionMetadataVersion,
			Provider:          provider.Name(),
			ProviderMessageID: messageID,
			ChurnEmailID:      req.ChurnEmailID,
		},
		CreatedAt: s.now(),
	}
	if err := s.interactionRepo.Create(ctx, interaction); err != nil {
		// best effort, the email is already out
		slog.Error("Failed to log email_sent interaction", "error", err, "trackingId", trackingID)
	}

	slog.Info("Email sent", "provider", provider.Name(), "to", req.To, "trackingId", trackingID, "messageId", messageID)
	return SendResult{
		Success:    true,
		TrackingID: trackingID,
		MessageID:  messageID,
		Provider:   provider.Name(),
	}, nil
}

// applyTemplate fills subject and content from a stored template when the request left them blank
func (s *EmailServiceImpl) applyTemplate(ctx context.Context, req *SendRequest) error {
	id, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		return fmt.Errorf("%w: invalid templateId", ErrValidation)
	}
	tmpl, err := s.templateRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrTemplateNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load email template: %w", err)
	}
	if !tmpl.IsActive {
		return fmt.Errorf("%w: template %q is inactive", ErrValidation, tmpl.Name)
	}
	if req.Subject == "" {
		req.Subject = tmpl.Subject
	}
	if req.Content == "" {
		req.Content = tmpl.Content
	}
	return nil
}

func (s *EmailServiceImpl) trackURL(trackingID string) string {
	return s.baseURL + "/api/track/" + trackingID
}

// substitute rewrites every placeholder in content
func (s *EmailServiceImpl) substitute(content, name, trackingID string) string {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	trackURL := s.trackURL(trackingID)
	return strings.NewReplacer(
		PlaceholderVirtualTourLink, trackURL,
		PlaceholderProspectName, name,
		PlaceholderUnsubscribeLink, s.baseURL+"/api/unsubscribe/"+trackingID,
		PlaceholderHomePageLink, trackURL+"?dest=home",
	).Replace(content)
}

// renderText substitutes placeholders and appends a tracked home link when the body has none
func (s *EmailServiceImpl) renderText(content, name, trackingID string) string {
	out := s.substitute(content, name, trackingID)
	if !strings.Contains(out, s.trackURL(trackingID)) {
		out = strings.TrimRight(out, "\n") + "\n\nVisit us: " + s.trackURL(trackingID) + "?dest=home"
	}
	return out
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// TextToHTML escapes plain text, turns blank-line separated blocks into paragraphs,
// single newlines into <br> and URLs into anchors.
func TextToHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(linkify(block), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	return b.String()
}

// linkify finds URLs in the raw text so escaping never pulls an entity into a link
func linkify(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:loc[0]]))
		u := html.EscapeString(text[loc[0]:loc[1]])
		b.WriteString(`<a href="` + u + `">` + u + `</a>`)
		last = loc[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return b.String()
}
