package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/services"
)

// EmailHandler serves outbound email and the public tracking endpoints
type EmailHandler struct {
	emailService    services.EmailService
	trackingService services.TrackingService
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(emailService services.EmailService, trackingService services.TrackingService) *EmailHandler {
	return &EmailHandler{
		emailService:    emailService,
		trackingService: trackingService,
	}
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
		Referer:   c.Request.Referer(),
		Throttled: middleware.IsRateLimited(c),
	}
}

// SendEmail handles POST /api/send-email. Provider failures answer 502 with the result body.
func (h *EmailHandler) SendEmail(c *gin.Context) {
	var req services.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.emailService.Send(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Track handles GET /api/track/:trackingId; it always redirects
func (h *EmailHandler) Track(c *gin.Context) {
	target := h.trackingService.TrackClick(c.Request.Context(), c.Param("trackingId"), c.Query("dest"), requestMeta(c))
	c.Redirect(http.StatusFound, target)
}

// VirtualTour handles GET /api/virtual-tour/:trackingId
func (h *EmailHandler) VirtualTour(c *gin.Context) {
	who, err := h.trackingService.ViewTour(c.Request.Context(), c.Param("trackingId"), requestMeta(c))
	if errors.Is(err, services.ErrTrackingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tour link not found", "found": false})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "prospect": who})
}

// Unsubscribe handles GET /api/unsubscribe/:trackingId
func (h *EmailHandler) Unsubscribe(c *gin.Context) {
	email, err := h.trackingService.Unsubscribe(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unsubscribed": true, "email": email})
}

// Engagement handles GET /api/prospect/:email/engagement
func (h *EmailHandler) Engagement(c *gin.Context) {
	summary, err := h.trackingService.Engagement(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
