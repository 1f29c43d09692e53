package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/config"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(tokens *jwt.SessionTokenService) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	authed := r.Group("/", JWTAuthMiddleware(tokens))
	authed.GET("/me", func(c *gin.Context) {
		id, _ := CurrentMemberID(c)
		c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "role": CurrentRole(c)})
	})
	authed.GET("/staff", RequireStaff(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestJWTAuthMiddleware(t *testing.T) {
	tokens := jwt.NewSessionTokenService("secret", time.Hour)
	router := newAuthRouter(tokens)
	memberID := primitive.NewObjectID()

	memberToken, _, err := tokens.Issue(memberID.Hex(), "m@example.com", string(models.RoleMember))
	require.NoError(t, err)
	staffToken, _, err := tokens.Issue(primitive.NewObjectID().Hex(), "s@example.com", string(models.RoleStaff))
	require.NoError(t, err)
	otherSecret, _, err := jwt.NewSessionTokenService("other", time.Hour).Issue(memberID.Hex(), "m@example.com", "member")
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
	}{
		{"no credentials", "/me", "", "", http.StatusUnauthorized},
		{"bearer token", "/me", "Bearer " + memberToken, "", http.StatusOK},
		{"session cookie", "/me", "", memberToken, http.StatusOK},
		{"wrong secret", "/me", "Bearer " + otherSecret, "", http.StatusUnauthorized},
		{"garbage", "/me", "Bearer not-a-token", "", http.StatusUnauthorized},
		{"member on staff route", "/staff", "Bearer " + memberToken, "", http.StatusForbidden},
		{"staff on staff route", "/staff", "Bearer " + staffToken, "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestJWTAuthMiddleware_SetsIdentity(t *testing.T) {
	tokens := jwt.NewSessionTokenService("secret", time.Hour)
	router := newAuthRouter(tokens)
	memberID := primitive.NewObjectID()
	token, _, err := tokens.Issue(memberID.Hex(), "m@example.com", "member")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+memberID.Hex()+`","role":"member"}`, w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.AllowedHosts = []string{"https://app.gym.test"}

	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.gym.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.gym.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDMiddleware_KeepsIncomingID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggerMiddleware())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.GET("/t", limiter.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/t", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.RemoteAddr = "192.0.2.11:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_FlagNeverRejects(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.GET("/t", limiter.Flag(), func(c *gin.Context) {
		if IsRateLimited(c) {
			c.Status(http.StatusAccepted)
			return
		}
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/t", nil)
		req.RemoteAddr = "192.0.2.20:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusAccepted, http.StatusAccepted}, codes)
}
