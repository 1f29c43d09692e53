package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/services"
)

// MemberHandler handles member lookups, check-ins and the member's own loyalty history
type MemberHandler struct {
	memberService  services.MemberService
	loyaltyService services.LoyaltyService
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(memberService services.MemberService, loyaltyService services.LoyaltyService) *MemberHandler {
	return &MemberHandler{
		memberService:  memberService,
		loyaltyService: loyaltyService,
	}
}

// ListMembers handles GET /api/staff/members
func (h *MemberHandler) ListMembers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	members, err := h.memberService.ListMembers(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// GetMember handles GET /api/staff/members/:id
func (h *MemberHandler) GetMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	member, err := h.memberService.GetMember(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

type checkInRequest struct {
	CheckedInAt *time.Time `json:"checkedInAt"`
}

// CheckIn handles POST /api/staff/members/:id/check-in
func (h *MemberHandler) CheckIn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req checkInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	var at time.Time
	if req.CheckedInAt != nil {
		at = *req.CheckedInAt
	}
	staffID, _ := middleware.CurrentMemberID(c)

	result, err := h.loyaltyService.RecordVisit(c.Request.Context(), id, staffID, at)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// MyPoints handles GET /api/members/me/points
func (h *MemberHandler) MyPoints(c *gin.Context) {
	id, _ := middleware.CurrentMemberID(c)
	member, err := h.memberService.GetMember(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.loyaltyService.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": member.LoyaltyPoints, "transactions": history})
}

// MyRedemptions handles GET /api/members/me/redemptions
func (h *MemberHandler) MyRedemptions(c *gin.Context) {
	id, _ := middleware.CurrentMemberID(c)
	redemptions, err := h.loyaltyService.Redemptions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redemptions)
}
