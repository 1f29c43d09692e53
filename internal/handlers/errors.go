package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/services"
	"github.com/pulsefit/retention-backend/pkg/mailer"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInsufficientPoints),
		errors.Is(err, services.ErrOfferInactive),
		errors.Is(err, services.ErrRecipientSuppressed),
		errors.Is(err, mailer.ErrProviderNotConfigured),
		errors.Is(err, mailer.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrChurnEmailNotFound),
		errors.Is(err, services.ErrTrackingNotFound),
		errors.Is(err, services.ErrOfferNotFound),
		errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrDispatchInProgress),
		errors.Is(err, services.ErrAlreadyRedeemed),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrTemplateNameTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrGenerationFailed),
		errors.Is(err, services.ErrDispatchFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Unclassified errors are logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		slog.Error("Unhandled request error", "error", err, "path", c.Request.URL.Path, "requestId", c.GetString(middleware.RequestIDKey))
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	case http.StatusBadGateway:
		slog.Warn("Upstream provider error", "error", err, "path", c.Request.URL.Path, "requestId", c.GetString(middleware.RequestIDKey))
	}
	c.JSON(status, gin.H{"error": clientMessage(err)})
}

// clientMessage reduces upstream failures to their sentinel text; provider detail stays in the logs
func clientMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrGenerationFailed):
		return services.ErrGenerationFailed.Error()
	case errors.Is(err, services.ErrDispatchFailed):
		return services.ErrDispatchFailed.Error()
	}
	return err.Error()
}

// parseID reads a hex ObjectID path parameter, answering 400 when it is malformed
func parseID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}
