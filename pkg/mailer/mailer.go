// Package mailer delivers rendered emails through a configured provider.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrProviderNotConfigured is returned when a caller asks for a provider that has no credentials.
	ErrProviderNotConfigured = errors.New("email provider not configured")
	// ErrInvalidMessage is returned before any network call when a message is incomplete.
	ErrInvalidMessage = errors.New("invalid email message")
)

// Provider names
const (
	ProviderResend   = "resend"
	ProviderSendGrid = "sendgrid"
	ProviderTest     = "test"
)

// Message is a single rendered email
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Validate checks the fields every provider needs
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	case strings.TrimSpace(m.From) == "":
		return fmt.Errorf("%w: sender is required", ErrInvalidMessage)
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	case m.HTML == "" && m.Text == "":
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// Provider represents an email delivery backend
type Provider interface {
	Name() string
	// Send delivers msg and returns the provider's message id.
	Send(ctx context.Context, msg Message) (string, error)
}

// ProviderError carries a non-2xx response from a provider API
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Config holds provider credentials. Providers with an empty key are skipped.
type Config struct {
	ResendAPIKey    string
	ResendBaseURL   string
	SendGridAPIKey  string
	SendGridBaseURL string
	Timeout         time.Duration
}

// Dispatcher owns the providers built from configuration at startup
type Dispatcher struct {
	providers map[string]Provider
	order     []string
}

// NewDispatcher builds every configured provider. The test provider is always available
// and becomes the default when nothing else is configured.
func NewDispatcher(cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var providers []Provider
	if cfg.ResendAPIKey != "" {
		providers = append(providers, NewResendProvider(cfg.ResendBaseURL, cfg.ResendAPIKey, client))
	}
	if cfg.SendGridAPIKey != "" {
		providers = append(providers, NewSendGridProvider(cfg.SendGridBaseURL, cfg.SendGridAPIKey, client))
	}
	providers = append(providers, NewTestProvider())
	return NewDispatcherWith(providers...)
}

// NewDispatcherWith wraps explicit providers; the first is the default.
func NewDispatcherWith(providers ...Provider) *Dispatcher {
	d := &Dispatcher{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, exists := d.providers[p.Name()]; exists {
			continue
		}
		d.providers[p.Name()] = p
		d.order = append(d.order, p.Name())
	}
	return d
}

// Default returns the preferred provider
func (d *Dispatcher) Default() Provider {
	if len(d.order) == 0 {
		return NewTestProvider()
	}
	return d.providers[d.order[0]]
}

// Resolve returns the named provider, or the default when name is empty
func (d *Dispatcher) Resolve(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return d.Default(), nil
	}
	p, ok := d.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, name)
	}
	return p, nil
}

// Available lists provider names in preference order
func (d *Dispatcher) Available() []string {
	return append([]string(nil), d.order...)
}
