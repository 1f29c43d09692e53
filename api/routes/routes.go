package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/config"
	"github.com/pulsefit/retention-backend/internal/handlers"
	"github.com/pulsefit/retention-backend/internal/metrics"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/pkg/jwt"
)

// HandlerDependencies bundles everything the router wires up
type HandlerDependencies struct {
	Tokens               *jwt.SessionTokenService
	RateLimiter          *middleware.RateLimiter
	// HealthCheck reports storage reachability on /health; nil skips it
	HealthCheck          func(ctx context.Context) error
	AuthHandler          *handlers.AuthHandler
	MemberHandler        *handlers.MemberHandler
	ChurnEmailHandler    *handlers.ChurnEmailHandler
	EmailHandler         *handlers.EmailHandler
	LoyaltyHandler       *handlers.LoyaltyHandler
	NotificationHandler  *handlers.NotificationHandler
	OutreachHandler      *handlers.OutreachHandler
	WorkoutHandler       *handlers.WorkoutHandler
	EmailTemplateHandler *handlers.EmailTemplateHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg))

	router.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.AuthHandler.Register)
		auth.POST("/login", deps.AuthHandler.Login)
		auth.POST("/logout", deps.AuthHandler.Logout)
	}

	// Email links must always redirect, so clicks are flagged rather than rejected
	clicks := api.Group("")
	if deps.RateLimiter != nil {
		clicks.Use(deps.RateLimiter.Flag())
	}
	clicks.GET("/track/:trackingId", deps.EmailHandler.Track)

	tracking := api.Group("")
	if deps.RateLimiter != nil {
		tracking.Use(deps.RateLimiter.Handler())
	}
	{
		tracking.GET("/virtual-tour/:trackingId", deps.EmailHandler.VirtualTour)
		tracking.GET("/unsubscribe/:trackingId", deps.EmailHandler.Unsubscribe)
	}

	// Any signed-in account
	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware(deps.Tokens))
	{
		protected.GET("/auth/me", deps.AuthHandler.Me)
	}

	// Member self-service
	member := protected.Group("")
	member.Use(middleware.RequireRole(models.RoleMember))
	{
		member.GET("/offers", deps.LoyaltyHandler.ActiveOffers)
		member.POST("/offers/:offerId/redeem", deps.LoyaltyHandler.Redeem)
		member.GET("/members/me/points", deps.MemberHandler.MyPoints)
		member.GET("/members/me/redemptions", deps.MemberHandler.MyRedemptions)
		member.GET("/notifications", deps.NotificationHandler.List)
		member.PUT("/notifications/:id/read", deps.NotificationHandler.MarkRead)
		member.POST("/workout-plans/generate", deps.WorkoutHandler.Generate)
		member.GET("/workout-plans", deps.WorkoutHandler.List)
	}

	// Staff dashboard
	staffOnly := protected.Group("")
	staffOnly.Use(middleware.RequireStaff())
	{
		staffOnly.POST("/send-email", deps.EmailHandler.SendEmail)
		staffOnly.GET("/prospect/:email/engagement", deps.EmailHandler.Engagement)
	}

	staff := staffOnly.Group("/staff")
	{
		staff.GET("/at-risk-members", deps.ChurnEmailHandler.AtRiskMembers)

		members := staff.Group("/members")
		{
			members.GET("", deps.MemberHandler.ListMembers)
			members.GET("/:id", deps.MemberHandler.GetMember)
			members.POST("/:id/check-in", deps.MemberHandler.CheckIn)
			members.GET("/:id/outreach", deps.OutreachHandler.ListForMember)
		}

		churn := staff.Group("/churn-emails")
		{
			churn.GET("", deps.ChurnEmailHandler.List)
			churn.POST("/generate", deps.ChurnEmailHandler.Generate)
			churn.POST("/scan", deps.ChurnEmailHandler.Scan)
			churn.GET("/:id", deps.ChurnEmailHandler.Get)
			churn.POST("/:id/approve", deps.ChurnEmailHandler.Approve)
			churn.POST("/:id/reject", deps.ChurnEmailHandler.Reject)
			churn.POST("/:id/send", deps.ChurnEmailHandler.Send)
		}

		staff.POST("/outreach", deps.OutreachHandler.Log)

		offers := staff.Group("/offers")
		{
			offers.GET("", deps.LoyaltyHandler.ListOffers)
			offers.POST("", deps.LoyaltyHandler.CreateOffer)
			offers.PUT("/:id", deps.LoyaltyHandler.UpdateOffer)
			offers.DELETE("/:id", deps.LoyaltyHandler.DeactivateOffer)
		}

		templates := staff.Group("/email-templates")
		{
			templates.GET("", deps.EmailTemplateHandler.List)
			templates.POST("", deps.EmailTemplateHandler.Create)
			templates.PUT("/:id", deps.EmailTemplateHandler.Update)
			templates.DELETE("/:id", deps.EmailTemplateHandler.Delete)
		}
	}

	return router
}
