package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"

	"github.com/tidwall/gjson"
)

// SendGridProvider sends through the SendGrid v3 mail API
type SendGridProvider struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
}

// NewSendGridProvider creates a new SendGrid provider
func NewSendGridProvider(baseURL, apiKey string, client *http.Client) *SendGridProvider {
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	return &SendGridProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		httpClient: client,
	}
}

func (p *SendGridProvider) Name() string { return ProviderSendGrid }

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []struct {
		To []sendGridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendGridAddress   `json:"from"`
	Subject string            `json:"subject"`
	Content []sendGridContent `json:"content"`
}

// parseAddress splits "Name <addr>" into its parts
func parseAddress(raw string) sendGridAddress {
	if addr, err := mail.ParseAddress(raw); err == nil {
		return sendGridAddress{Email: addr.Address, Name: addr.Name}
	}
	return sendGridAddress{Email: strings.TrimSpace(raw)}
}

// Send posts to /v3/mail/send. SendGrid answers 202 with the id in X-Message-Id.
func (p *SendGridProvider) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	var payload sendGridRequest
	payload.Personalizations = make([]struct {
		To []sendGridAddress `json:"to"`
	}, 1)
	payload.Personalizations[0].To = []sendGridAddress{parseAddress(msg.To)}
	payload.From = parseAddress(msg.From)
	payload.Subject = msg.Subject
	if msg.Text != "" {
		payload.Content = append(payload.Content, sendGridContent{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		payload.Content = append(payload.Content, sendGridContent{Type: "text/html", Value: msg.HTML})
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v3/mail/send", bytes.NewReader(jsonBody))
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
		message := gjson.GetBytes(body, "errors.0.message").String()
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		return "", &ProviderError{Provider: ProviderSendGrid, StatusCode: resp.StatusCode, Message: message}
	}

	return resp.Header.Get("X-Message-Id"), nil
}
