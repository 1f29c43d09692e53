package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChurnEmailHandler serves the staff churn dashboard
type ChurnEmailHandler struct {
	churnService services.ChurnEmailService
}

// NewChurnEmailHandler creates a new ChurnEmailHandler
func NewChurnEmailHandler(churnService services.ChurnEmailService) *ChurnEmailHandler {
	return &ChurnEmailHandler{churnService: churnService}
}

// AtRiskMembers handles GET /api/staff/at-risk-members
func (h *ChurnEmailHandler) AtRiskMembers(c *gin.Context) {
	members, err := h.churnService.AtRiskMembers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// List handles GET /api/staff/churn-emails?status=
func (h *ChurnEmailHandler) List(c *gin.Context) {
	emails, err := h.churnService.List(c.Request.Context(), models.ChurnEmailStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emails)
}

// Get handles GET /api/staff/churn-emails/:id
func (h *ChurnEmailHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	email, err := h.churnService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, email)
}

type generateRequest struct {
	MemberID string `json:"memberId" binding:"required"`
}

// Generate handles POST /api/staff/churn-emails/generate.
// 201 when a new draft was created, 200 when the existing pending draft is returned.
func (h *ChurnEmailHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	memberID, err := primitive.ObjectIDFromHex(req.MemberID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid memberId"})
		return
	}

	var staffID *primitive.ObjectID
	if id, ok := middleware.CurrentMemberID(c); ok {
		staffID = &id
	}

	email, created, err := h.churnService.Generate(c.Request.Context(), memberID, staffID)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, email)
}

// Scan handles POST /api/staff/churn-emails/scan
func (h *ChurnEmailHandler) Scan(c *gin.Context) {
	result, err := h.churnService.ScanAtRisk(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Approve handles POST /api/staff/churn-emails/:id/approve
func (h *ChurnEmailHandler) Approve(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	staffID, _ := middleware.CurrentMemberID(c)
	email, err := h.churnService.Approve(c.Request.Context(), id, staffID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, email)
}

// Reject handles POST /api/staff/churn-emails/:id/reject
func (h *ChurnEmailHandler) Reject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	staffID, _ := middleware.CurrentMemberID(c)
	email, err := h.churnService.Reject(c.Request.Context(), id, staffID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, email)
}

// Send handles POST /api/staff/churn-emails/:id/send
func (h *ChurnEmailHandler) Send(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	staffID, _ := middleware.CurrentMemberID(c)
	email, result, err := h.churnService.Send(c.Request.Context(), id, staffID)
	if err != nil {
		if result != nil && !result.Success && result.Error != "" {
			c.JSON(statusFor(err), gin.H{"error": clientMessage(err), "result": result})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"churnEmail": email, "result": result})
}
