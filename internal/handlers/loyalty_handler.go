package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/services"
)

// LoyaltyHandler serves the offer catalog and redemptions
type LoyaltyHandler struct {
	loyaltyService services.LoyaltyService
}

// NewLoyaltyHandler creates a new LoyaltyHandler
func NewLoyaltyHandler(loyaltyService services.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{loyaltyService: loyaltyService}
}

type offerRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Points      int        `json:"points" binding:"required,gt=0"`
	Category    string     `json:"category"`
	IsActive    *bool      `json:"isActive"`
	ValidUntil  *time.Time `json:"validUntil"`
}

func (r offerRequest) toOffer() *models.LoyaltyOffer {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.LoyaltyOffer{
		Title:       r.Title,
		Description: r.Description,
		Points:      r.Points,
		Category:    r.Category,
		IsActive:    active,
		ValidUntil:  r.ValidUntil,
	}
}

// ActiveOffers handles GET /api/offers
func (h *LoyaltyHandler) ActiveOffers(c *gin.Context) {
	offers, err := h.loyaltyService.ListOffers(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

// ListOffers handles GET /api/staff/offers
func (h *LoyaltyHandler) ListOffers(c *gin.Context) {
	offers, err := h.loyaltyService.ListOffers(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

// CreateOffer handles POST /api/staff/offers
func (h *LoyaltyHandler) CreateOffer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offer := req.toOffer()
	if staffID, ok := middleware.CurrentMemberID(c); ok {
		offer.CreatedBy = staffID.Hex()
	}
	if err := h.loyaltyService.CreateOffer(c.Request.Context(), offer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

// UpdateOffer handles PUT /api/staff/offers/:id
func (h *LoyaltyHandler) UpdateOffer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offer := req.toOffer()
	offer.ID = id
	if err := h.loyaltyService.UpdateOffer(c.Request.Context(), offer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// DeactivateOffer handles DELETE /api/staff/offers/:id
func (h *LoyaltyHandler) DeactivateOffer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.loyaltyService.DeactivateOffer(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Redeem handles POST /api/offers/:offerId/redeem
func (h *LoyaltyHandler) Redeem(c *gin.Context) {
	offerID, ok := parseID(c, "offerId")
	if !ok {
		return
	}
	memberID, _ := middleware.CurrentMemberID(c)
	result, err := h.loyaltyService.Redeem(c.Request.Context(), memberID, offerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
