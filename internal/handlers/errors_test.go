package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/retention-backend/internal/services"
	"github.com/pulsefit/retention-backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: title is required", services.ErrValidation), http.StatusBadRequest},
		{"insufficient points", services.ErrInsufficientPoints, http.StatusBadRequest},
		{"suppressed", services.ErrRecipientSuppressed, http.StatusBadRequest},
		{"provider not configured", mailer.ErrProviderNotConfigured, http.StatusBadRequest},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"member missing", services.ErrMemberNotFound, http.StatusNotFound},
		{"tracking missing", services.ErrTrackingNotFound, http.StatusNotFound},
		{"illegal transition", fmt.Errorf("approve: %w", services.ErrInvalidTransition), http.StatusConflict},
		{"already redeemed", services.ErrAlreadyRedeemed, http.StatusConflict},
		{"send in flight", services.ErrDispatchInProgress, http.StatusConflict},
		{"generator down", services.ErrGenerationFailed, http.StatusBadGateway},
		{"dispatch failed", services.ErrDispatchFailed, http.StatusBadGateway},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/staff/members", nil)

	respondError(c, errors.New("mongo: socket closed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestRespondErrorHidesUpstreamDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/staff/churn-emails/generate", nil)

	respondError(c, fmt.Errorf("%w: Post \"https://upstream.test/?key=abc\": dial tcp: refused", services.ErrGenerationFailed))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"content generation failed"}`, w.Body.String())
}

func TestParseID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "zzz"}}

	_, ok := parseID(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
