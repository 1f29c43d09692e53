package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() Message {
	return Message{
		From:    "PulseFit <hello@pulsefit.test>",
		To:      "jamie@example.com",
		Subject: "We miss you",
		HTML:    "<p>Hi Jamie</p>",
	}
}

func TestResendProvider_Send(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	}))
	defer srv.Close()

	p := NewResendProvider(srv.URL, "re_key", srv.Client())
	id, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794", id)
	assert.Equal(t, []interface{}{"jamie@example.com"}, got["to"])
	assert.Equal(t, "We miss you", got["subject"])
}

func TestResendProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"message":"The 'from' field is required.","name":"validation_error"}`))
	}))
	defer srv.Close()

	_, err := NewResendProvider(srv.URL, "re_key", srv.Client()).Send(context.Background(), testMessage())
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnprocessableEntity, perr.StatusCode)
	assert.Contains(t, perr.Message, "'from' field")
}

func TestSendGridProvider_Send(t *testing.T) {
	var got sendGridRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "sg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	id, err := NewSendGridProvider(srv.URL, "sg_key", srv.Client()).Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "sg-123", id)
	assert.Equal(t, "hello@pulsefit.test", got.From.Email)
	assert.Equal(t, "PulseFit", got.From.Name)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "jamie@example.com", got.Personalizations[0].To[0].Email)
}

func TestMessage_ValidateRejectsBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	msg := testMessage()
	msg.To = ""
	_, err := NewResendProvider(srv.URL, "k", srv.Client()).Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.False(t, called)
}

func TestDispatcher_Resolve(t *testing.T) {
	d := NewDispatcher(Config{ResendAPIKey: "re_key"})
	assert.Equal(t, []string{ProviderResend, ProviderTest}, d.Available())
	assert.Equal(t, ProviderResend, d.Default().Name())

	p, err := d.Resolve("TEST")
	require.NoError(t, err)
	assert.Equal(t, ProviderTest, p.Name())

	_, err = d.Resolve("sendgrid")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestDispatcher_DefaultsToTest(t *testing.T) {
	d := NewDispatcher(Config{})
	assert.Equal(t, ProviderTest, d.Default().Name())
}

func TestTestProvider_RecordsMessages(t *testing.T) {
	p := NewTestProvider()
	id, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Len(t, p.Sent(), 1)
	assert.Equal(t, "jamie@example.com", p.Sent()[0].To)
}
