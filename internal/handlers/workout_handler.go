package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/services"
)

// WorkoutHandler serves member workout plans
type WorkoutHandler struct {
	workoutService services.WorkoutService
}

// NewWorkoutHandler creates a new WorkoutHandler
func NewWorkoutHandler(workoutService services.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// Generate handles POST /api/workout-plans/generate
func (h *WorkoutHandler) Generate(c *gin.Context) {
	var req services.WorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	memberID, _ := middleware.CurrentMemberID(c)
	plan, err := h.workoutService.Generate(c.Request.Context(), memberID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// List handles GET /api/workout-plans
func (h *WorkoutHandler) List(c *gin.Context) {
	memberID, _ := middleware.CurrentMemberID(c)
	plans, err := h.workoutService.ListForMember(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}
