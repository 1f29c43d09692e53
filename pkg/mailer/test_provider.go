package mailer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// TestProvider logs messages instead of delivering them and keeps the last few for inspection
type TestProvider struct {
	mu   sync.Mutex
	sent []Message
}

// NewTestProvider creates a new test provider
func NewTestProvider() *TestProvider {
	return &TestProvider{}
}

func (p *TestProvider) Name() string { return ProviderTest }

// Send always succeeds once the message validates
func (p *TestProvider) Send(_ context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	msgID := fmt.Sprintf("test-%d", time.Now().UnixNano())
	slog.Info("Test email provider simulated send", "to", msg.To, "subject", msg.Subject, "messageId", msgID)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	if len(p.sent) > 100 {
		p.sent = p.sent[len(p.sent)-100:]
	}
	return msgID, nil
}

// Sent returns a copy of the retained messages, oldest first
func (p *TestProvider) Sent() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}
