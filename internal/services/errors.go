package services

import (
	"errors"

	"github.com/pulsefit/retention-backend/internal/models"
)

// Sentinel errors returned by the services. Handlers map them to status codes with errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrMemberNotFound       = errors.New("member not found")
	ErrChurnEmailNotFound   = errors.New("churn email not found")
	ErrInvalidTransition    = models.ErrInvalidTransition
	ErrGenerationFailed     = errors.New("content generation failed")
	ErrDispatchFailed       = errors.New("email dispatch failed")
	ErrDispatchInProgress   = errors.New("churn email is already being sent")
	ErrRecipientSuppressed  = errors.New("recipient has unsubscribed")
	ErrTrackingNotFound     = errors.New("tracking id not found")
	ErrOfferNotFound        = errors.New("offer not found")
	ErrOfferInactive        = errors.New("offer is not available")
	ErrAlreadyRedeemed      = errors.New("offer already redeemed")
	ErrInsufficientPoints   = errors.New("insufficient points")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrTemplateNotFound     = errors.New("email template not found")
	ErrTemplateNameTaken    = errors.New("email template name already exists")
	ErrNotificationNotFound = errors.New("notification not found")
)
