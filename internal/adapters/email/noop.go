package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender logs mail instead of delivering it and keeps what it was given.
// It is used when no provider key is configured, and by tests.
type NoopSender struct {
	mu   sync.Mutex
	sent []SendRequest
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send records the request without delivery.
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	if err := req.Validate(); err != nil {
		return SendResult{}, err
	}
	s.mu.Lock()
	s.sent = append(s.sent, req)
	n := len(s.sent)
	s.mu.Unlock()

	slog.Info("mail_event", "event", "noop_send", "to", req.To, "subject", req.Subject)
	return SendResult{MessageID: fmt.Sprintf("noop-%d", n), SentAt: time.Now()}, nil
}

// Sent returns a copy of every recorded request.
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.sent...)
}
