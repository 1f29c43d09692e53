package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/services"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// List handles GET /api/notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	memberID, _ := middleware.CurrentMemberID(c)
	notifications, err := h.notificationService.ListForMember(c.Request.Context(), memberID, c.Query("unread") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkRead handles PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	memberID, _ := middleware.CurrentMemberID(c)
	if err := h.notificationService.MarkRead(c.Request.Context(), id, memberID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
