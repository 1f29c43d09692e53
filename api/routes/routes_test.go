package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/config"
	"github.com/pulsefit/retention-backend/internal/handlers"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"github.com/pulsefit/retention-backend/internal/repositories/memory"
	"github.com/pulsefit/retention-backend/internal/services"
	"github.com/pulsefit/retention-backend/pkg/genai"
	"github.com/pulsefit/retention-backend/pkg/jwt"
	"github.com/pulsefit/retention-backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const baseURL = "https://gym.test"

type testServer struct {
	router *gin.Engine
	store  *repositories.Store
	tokens *jwt.SessionTokenService
	outbox *mailer.TestProvider
}

func newTestServer(t *testing.T, overrides ...func(*HandlerDependencies)) *testServer {
	t.Helper()
	return newTestServerWithGenerator(t, genai.NewMockGenerator(), overrides...)
}

func newTestServerWithGenerator(t *testing.T, generator genai.Generator, overrides ...func(*HandlerDependencies)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	store := memory.NewStore()
	tokens := jwt.NewSessionTokenService("route-secret", time.Hour)
	outbox := mailer.NewTestProvider()

	emailService := services.NewEmailService(mailer.NewDispatcherWith(outbox), store.Interactions, store.Suppressions, store.EmailTemplates, baseURL, "PulseFit <hello@gym.test>")
	trackingService := services.NewTrackingService(store.Interactions, store.Suppressions, baseURL)
	churnService := services.NewChurnEmailService(store.Members, store.ChurnEmails, generator, emailService)
	memberService := services.NewMemberService(store.Members)
	notificationService := services.NewNotificationService(store.Notifications)
	loyaltyService := services.NewLoyaltyService(store, notificationService, 10)

	deps := HandlerDependencies{
		Tokens:               tokens,
		RateLimiter:          middleware.NewRateLimiter(100, 100),
		AuthHandler:          handlers.NewAuthHandler(services.NewAuthService(store.Members, tokens), memberService, 3600, baseURL),
		MemberHandler:        handlers.NewMemberHandler(memberService, loyaltyService),
		ChurnEmailHandler:    handlers.NewChurnEmailHandler(churnService),
		EmailHandler:         handlers.NewEmailHandler(emailService, trackingService),
		LoyaltyHandler:       handlers.NewLoyaltyHandler(loyaltyService),
		NotificationHandler:  handlers.NewNotificationHandler(notificationService),
		OutreachHandler:      handlers.NewOutreachHandler(services.NewOutreachService(store.Outreach, store.Members)),
		WorkoutHandler:       handlers.NewWorkoutHandler(services.NewWorkoutService(store.Members, store.WorkoutPlans, generator)),
		EmailTemplateHandler: handlers.NewEmailTemplateHandler(services.NewEmailTemplateService(store.EmailTemplates)),
	}
	for _, override := range overrides {
		override(&deps)
	}
	router := SetupRouter(cfg, deps)
	return &testServer{router: router, store: store, tokens: tokens, outbox: outbox}
}

func (s *testServer) account(t *testing.T, email string, role models.Role, points int, lastVisit *time.Time) (*models.Member, string) {
	t.Helper()
	m := &models.Member{
		Email:          email,
		FirstName:      "Sam",
		LastName:       "Rivera",
		Role:           role,
		MembershipType: models.MembershipBasic,
		LoyaltyPoints:  points,
		JoinDate:       time.Now().AddDate(-1, 0, 0),
		LastVisit:      lastVisit,
	}
	require.NoError(t, s.store.Members.Create(context.Background(), m))
	token, _, err := s.tokens.Issue(m.ID.Hex(), m.Email, string(role))
	require.NoError(t, err)
	return m, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pulsefit_http_requests_total")
}

func TestHealthReportsStorageFailure(t *testing.T) {
	s := newTestServer(t, func(deps *HandlerDependencies) {
		deps.HealthCheck = func(context.Context) error { return errors.New("no reachable servers") }
	})

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no reachable servers")
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"firstName": "Avery", "lastName": "Chen", "email": "avery@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookie+"=")
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"firstName": "Avery", "lastName": "Chen", "email": "avery@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "avery@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "avery@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[models.AuthResponse](t, w)

	w = s.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "avery@example.com", decode[models.Member](t, w).Email)

	w = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStaffRoutesRequireStaff(t *testing.T) {
	s := newTestServer(t)
	_, memberToken := s.account(t, "m@example.com", models.RoleMember, 0, nil)
	_, staffToken := s.account(t, "s@example.com", models.RoleStaff, 0, nil)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/staff/at-risk-members", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/staff/at-risk-members", memberToken, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/staff/at-risk-members", staffToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/send-email", memberToken, gin.H{"to": "x@example.com"}).Code)
}

func TestChurnEmailLifecycle(t *testing.T) {
	s := newTestServer(t)
	member, _ := s.account(t, "lapsed@example.com", models.RoleMember, 120, nil)
	_, staffToken := s.account(t, "s@example.com", models.RoleStaff, 0, nil)

	w := s.do(t, http.MethodGet, "/api/staff/at-risk-members", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	atRisk := decode[[]map[string]any](t, w)
	require.Len(t, atRisk, 1)
	assert.Equal(t, "lapsed@example.com", atRisk[0]["email"])

	w = s.do(t, http.MethodPost, "/api/staff/churn-emails/generate", staffToken, gin.H{"memberId": member.ID.Hex()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	email := decode[models.ChurnEmail](t, w)
	assert.Equal(t, models.ChurnEmailPending, email.Status)

	w = s.do(t, http.MethodPost, "/api/staff/churn-emails/generate", staffToken, gin.H{"memberId": member.ID.Hex()})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/staff/churn-emails/"+email.ID.Hex()+"/send", staffToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/staff/churn-emails/"+email.ID.Hex()+"/approve", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/staff/churn-emails/"+email.ID.Hex()+"/reject", staffToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/staff/churn-emails/"+email.ID.Hex()+"/send", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := decode[struct {
		ChurnEmail models.ChurnEmail   `json:"churnEmail"`
		Result     services.SendResult `json:"result"`
	}](t, w)
	assert.Equal(t, models.ChurnEmailSent, sent.ChurnEmail.Status)
	assert.True(t, sent.Result.Success)
	require.Len(t, s.outbox.Sent(), 1)

	w = s.do(t, http.MethodGet, "/api/staff/churn-emails?status=sent", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ChurnEmail](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/staff/churn-emails?status=bogus", staffToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/staff/churn-emails/not-an-id/approve", staffToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/staff/churn-emails/"+primitive.NewObjectID().Hex()+"/approve", staffToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendEmailAndTracking(t *testing.T) {
	s := newTestServer(t)
	_, staffToken := s.account(t, "s@example.com", models.RoleStaff, 0, nil)

	w := s.do(t, http.MethodPost, "/api/send-email", staffToken, gin.H{
		"to": "prospect@example.com", "name": "Jordan", "subject": "Come see us", "content": "Tour: [VIRTUAL_TOUR_LINK]",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[services.SendResult](t, w)
	require.NotEmpty(t, result.TrackingID)

	w = s.do(t, http.MethodPost, "/api/send-email", staffToken, gin.H{"to": "not-an-email", "subject": "s", "content": "c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/send-email", staffToken, gin.H{"to": "p@example.com", "subject": "s", "content": "c", "provider": "sendgrid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/track/"+result.TrackingID, "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, baseURL+"/virtual-tour/"+result.TrackingID, w.Header().Get("Location"))

	w = s.do(t, http.MethodGet, "/api/track/unknown-id", "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, baseURL+"/virtual-tour", w.Header().Get("Location"))

	rows, err := s.store.Interactions.FindByTrackingID(context.Background(), result.TrackingID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.InteractionLinkClicked, rows[1].InteractionType)

	w = s.do(t, http.MethodGet, "/api/virtual-tour/"+result.TrackingID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Jordan"`)

	w = s.do(t, http.MethodGet, "/api/virtual-tour/unknown-id", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/prospect/prospect@example.com/engagement", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[services.EngagementSummary](t, w)
	assert.Equal(t, services.EngagementHot, summary.EngagementLevel)
	assert.Equal(t, 1, summary.LinkClicks)
	assert.Equal(t, 1, summary.TourViews)

	w = s.do(t, http.MethodGet, "/api/unsubscribe/"+result.TrackingID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/send-email", staffToken, gin.H{"to": "prospect@example.com", "subject": "s", "content": "c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "unsubscribed"))
}

func TestTrackRedirectsWhenRateLimited(t *testing.T) {
	s := newTestServer(t, func(deps *HandlerDependencies) {
		deps.RateLimiter = middleware.NewRateLimiter(0.001, 2)
	})
	_, staffToken := s.account(t, "s@example.com", models.RoleStaff, 0, nil)

	w := s.do(t, http.MethodPost, "/api/send-email", staffToken, gin.H{
		"to": "prospect@example.com", "name": "Jordan", "subject": "Come see us", "content": "Tour: [VIRTUAL_TOUR_LINK]",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[services.SendResult](t, w)

	for i := 0; i < 6; i++ {
		w = s.do(t, http.MethodGet, "/api/track/"+result.TrackingID, "", nil)
		require.Equal(t, http.StatusFound, w.Code, "click %d", i+1)
		assert.Equal(t, baseURL+"/virtual-tour/"+result.TrackingID, w.Header().Get("Location"))
	}

	rows, err := s.store.Interactions.FindByTrackingID(context.Background(), result.TrackingID)
	require.NoError(t, err)
	// one email_sent plus the two clicks inside the burst
	assert.Len(t, rows, 3)

	w = s.do(t, http.MethodGet, "/api/virtual-tour/"+result.TrackingID, "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGenerateUpstreamFailureHidesProviderDetail(t *testing.T) {
	const apiKey = "gm-route-secret-key"
	gemini := genai.NewGeminiGenerator(genai.Config{APIKey: apiKey, BaseURL: "http://127.0.0.1:1", Timeout: 2 * time.Second})
	s := newTestServerWithGenerator(t, gemini)
	member, memberToken := s.account(t, "lapsed@example.com", models.RoleMember, 0, nil)
	_, staffToken := s.account(t, "s@example.com", models.RoleStaff, 0, nil)

	w := s.do(t, http.MethodPost, "/api/staff/churn-emails/generate", staffToken, gin.H{"memberId": member.ID.Hex()})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"content generation failed"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), apiKey)

	w = s.do(t, http.MethodPost, "/api/workout-plans/generate", memberToken, gin.H{"goal": "strength", "fitnessLevel": "beginner", "daysPerWeek": 3})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), apiKey)
}

func TestLoyaltyRoutes(t *testing.T) {
	s := newTestServer(t)
	member, memberToken := s.account(t, "m@example.com", models.RoleMember, 1250, nil)
	_, staffToken := s.account(t, "s@example.com", models.RoleStaff, 0, nil)

	w := s.do(t, http.MethodPost, "/api/staff/offers", staffToken, gin.H{"title": "Free PT session", "points": 200, "category": "session"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	offer := decode[models.LoyaltyOffer](t, w)
	assert.True(t, offer.IsActive)

	w = s.do(t, http.MethodPost, "/api/staff/offers", staffToken, gin.H{"title": "Broken", "points": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/offers", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.LoyaltyOffer](t, w), 1)

	w = s.do(t, http.MethodPost, "/api/offers/"+offer.ID.Hex()+"/redeem", memberToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1050, decode[services.RedeemResult](t, w).Balance)

	w = s.do(t, http.MethodPost, "/api/offers/"+offer.ID.Hex()+"/redeem", memberToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/members/me/points", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":1050`)

	w = s.do(t, http.MethodGet, "/api/members/me/redemptions", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.OfferRedemption](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/notifications?unread=true", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode[[]models.Notification](t, w)
	require.Len(t, inbox, 1)

	w = s.do(t, http.MethodPut, "/api/notifications/"+inbox[0].ID.Hex()+"/read", memberToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, "/api/staff/members/"+member.ID.Hex()+"/check-in", staffToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1060, decode[services.VisitResult](t, w).Balance)

	w = s.do(t, http.MethodDelete, "/api/staff/offers/"+offer.ID.Hex(), staffToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/api/offers", memberToken, nil)
	assert.Empty(t, decode[[]models.LoyaltyOffer](t, w))
}

func TestRedeemInsufficientPoints(t *testing.T) {
	s := newTestServer(t)
	_, memberToken := s.account(t, "m@example.com", models.RoleMember, 100, nil)
	_, staffToken := s.account(t, "s@example.com", models.RoleStaff, 0, nil)

	w := s.do(t, http.MethodPost, "/api/staff/offers", staffToken, gin.H{"title": "Hoodie", "points": 200})
	require.Equal(t, http.StatusCreated, w.Code)
	offer := decode[models.LoyaltyOffer](t, w)

	w = s.do(t, http.MethodPost, "/api/offers/"+offer.ID.Hex()+"/redeem", memberToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient points")

	w = s.do(t, http.MethodGet, "/api/members/me/points", memberToken, nil)
	assert.Contains(t, w.Body.String(), `"balance":100`)
}

func TestOutreachWorkoutAndTemplates(t *testing.T) {
	s := newTestServer(t)
	member, memberToken := s.account(t, "m@example.com", models.RoleMember, 0, nil)
	_, staffToken := s.account(t, "s@example.com", models.RoleStaff, 0, nil)

	w := s.do(t, http.MethodPost, "/api/staff/outreach", staffToken, gin.H{"memberId": member.ID.Hex(), "actionType": "call", "notes": "left voicemail"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/staff/outreach", staffToken, gin.H{"memberId": member.ID.Hex(), "actionType": "fax"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/api/staff/members/"+member.ID.Hex()+"/outreach", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.OutreachAction](t, w), 1)

	w = s.do(t, http.MethodPost, "/api/workout-plans/generate", memberToken, gin.H{"goal": "endurance", "fitnessLevel": "intermediate", "daysPerWeek": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/workout-plans/generate", memberToken, gin.H{"goal": "endurance", "fitnessLevel": "elite", "daysPerWeek": 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/api/workout-plans", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.WorkoutPlan](t, w), 1)

	w = s.do(t, http.MethodPost, "/api/staff/email-templates", staffToken, gin.H{"name": "comeback", "subject": "Hi [PROSPECT_NAME]", "content": "[VIRTUAL_TOUR_LINK]"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tmpl := decode[models.EmailTemplate](t, w)
	w = s.do(t, http.MethodPost, "/api/staff/email-templates", staffToken, gin.H{"name": "comeback", "subject": "x", "content": "y"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/send-email", staffToken, gin.H{"to": "p@example.com", "name": "Lee", "templateId": tmpl.ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Hi Lee", s.outbox.Sent()[0].Subject)

	w = s.do(t, http.MethodDelete, "/api/staff/email-templates/"+tmpl.ID.Hex(), staffToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
