package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/services"
)

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	authService   services.AuthService
	memberService services.MemberService
	sessionTTL    int // seconds
	secureCookie  bool
}

// NewAuthHandler creates a new AuthHandler. sessionTTL is the cookie lifetime in seconds.
func NewAuthHandler(authService services.AuthService, memberService services.MemberService, sessionTTL int, baseURL string) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		memberService: memberService,
		sessionTTL:    sessionTTL,
		secureCookie:  strings.HasPrefix(baseURL, "https://"),
	}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, h.sessionTTL, "/", "", h.secureCookie, true)
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, resp.Token)
	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, resp.Token)
	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.CurrentMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	member, err := h.memberService.GetMember(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}
