package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ResendProvider sends through the Resend HTTP API
type ResendProvider struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
}

// NewResendProvider creates a new Resend provider
func NewResendProvider(baseURL, apiKey string, client *http.Client) *ResendProvider {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		httpClient: client,
	}
}

func (p *ResendProvider) Name() string { return ProviderResend }

// Send posts the message to /emails
func (p *ResendProvider) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	requestBody := map[string]interface{}{
		"from":    msg.From,
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	if msg.Text != "" {
		requestBody["text"] = msg.Text
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/emails", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := gjson.GetBytes(body, "message").String()
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		return "", &ProviderError{Provider: ProviderResend, StatusCode: resp.StatusCode, Message: message}
	}

	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("resend response missing id: %s", string(body))
	}
	return id, nil
}
