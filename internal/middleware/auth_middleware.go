package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/pkg/jwt"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// SessionCookie carries the session token for browser clients
const SessionCookie = "session"

// Context keys set by JWTAuthMiddleware
const (
	MemberIDKey    = "memberID"
	MemberEmailKey = "memberEmail"
	MemberRoleKey  = "memberRole"
)

func tokenFromRequest(c *gin.Context) string {
	const bearerSchema = "Bearer "
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerSchema) {
		return strings.TrimSpace(header[len(bearerSchema):])
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// JWTAuthMiddleware authenticates a Bearer token or the session cookie
func JWTAuthMiddleware(tokens *jwt.SessionTokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			slog.Warn("JWTAuthMiddleware: token rejected", "error", err, "path", c.Request.URL.Path)
			if errors.Is(err, jwt.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		memberID, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		c.Set(MemberIDKey, memberID)
		c.Set(MemberEmailKey, claims.Email)
		c.Set(MemberRoleKey, models.Role(claims.Role))
		c.Next()
	}
}

// RequireRole allows only the listed roles; it must run after JWTAuthMiddleware
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// RequireStaff allows staff and admin accounts
func RequireStaff() gin.HandlerFunc {
	return RequireRole(models.RoleStaff, models.RoleAdmin)
}

// CurrentMemberID returns the authenticated account id
func CurrentMemberID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(MemberIDKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

// CurrentRole returns the authenticated account role, or "" when unauthenticated
func CurrentRole(c *gin.Context) models.Role {
	v, _ := c.Get(MemberRoleKey)
	role, _ := v.(models.Role)
	return role
}
