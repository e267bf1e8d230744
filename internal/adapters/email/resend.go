package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// resendAPI is the part of the Resend client this package calls.
type resendAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSender delivers mail through the Resend API.
type ResendSender struct {
	api  resendAPI
	from string
	now  func() time.Time
}

// NewResendSender builds a sender for a verified from address.
// PRE: apiKey is a Resend API key
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{api: resend.NewClient(apiKey).Emails, from: from, now: time.Now}
}

// Send hands one mail to Resend. Retrying is the caller's business; the outbox does it.
// POST: on success the Resend message id is returned
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := req.Validate(); err != nil {
		return SendResult{}, err
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
	}
	if req.Tag != "" {
		params.Tags = []resend.Tag{{Name: "category", Value: req.Tag}}
	}

	log := slog.With("to", req.To, "subject", req.Subject)
	sent, err := s.api.SendWithContext(ctx, params)
	if err != nil {
		log.Error("mail_event", "event", "send_failed", "error", err.Error())
		return SendResult{}, fmt.Errorf("resend send: %w", err)
	}
	log.Info("mail_event", "event", "sent", "message_id", sent.Id)
	return SendResult{MessageID: sent.Id, SentAt: s.now()}, nil
}
