package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/services"
)

// EmailTemplateHandler serves staff template management
type EmailTemplateHandler struct {
	templateService services.EmailTemplateService
}

// NewEmailTemplateHandler creates a new EmailTemplateHandler
func NewEmailTemplateHandler(templateService services.EmailTemplateService) *EmailTemplateHandler {
	return &EmailTemplateHandler{templateService: templateService}
}

type templateRequest struct {
	Name     string `json:"name" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Content  string `json:"content" binding:"required"`
	IsActive *bool  `json:"isActive"`
}

func (r templateRequest) toTemplate() models.EmailTemplate {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return models.EmailTemplate{Name: r.Name, Subject: r.Subject, Content: r.Content, IsActive: active}
}

func (h *EmailTemplateHandler) List(c *gin.Context) {
	templates, err := h.templateService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *EmailTemplateHandler) Create(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl := req.toTemplate()
	if staffID, ok := middleware.CurrentMemberID(c); ok {
		tmpl.CreatedBy = staffID.Hex()
	}
	if err := h.templateService.Create(c.Request.Context(), &tmpl); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

func (h *EmailTemplateHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl := req.toTemplate()
	tmpl.ID = id
	if err := h.templateService.Update(c.Request.Context(), &tmpl); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *EmailTemplateHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.templateService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
