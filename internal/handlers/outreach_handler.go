package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OutreachHandler serves the staff outreach log
type OutreachHandler struct {
	outreachService services.OutreachService
}

// NewOutreachHandler creates a new OutreachHandler
func NewOutreachHandler(outreachService services.OutreachService) *OutreachHandler {
	return &OutreachHandler{outreachService: outreachService}
}

type outreachRequest struct {
	MemberID   string `json:"memberId" binding:"required"`
	ActionType string `json:"actionType" binding:"required"`
	Notes      string `json:"notes"`
	Outcome    string `json:"outcome"`
}

// Log handles POST /api/staff/outreach
func (h *OutreachHandler) Log(c *gin.Context) {
	var req outreachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	memberID, err := primitive.ObjectIDFromHex(req.MemberID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid memberId"})
		return
	}
	staffID, _ := middleware.CurrentMemberID(c)

	action := &models.OutreachAction{
		MemberID:   memberID,
		StaffID:    staffID,
		ActionType: req.ActionType,
		Notes:      req.Notes,
		Outcome:    req.Outcome,
	}
	if err := h.outreachService.Log(c.Request.Context(), action); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, action)
}

// ListForMember handles GET /api/staff/members/:id/outreach
func (h *OutreachHandler) ListForMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actions, err := h.outreachService.ListForMember(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, actions)
}
