// Package email delivers operator reports by mail.
package email

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNoRecipients = errors.New("email: no recipients")
	ErrNoSubject    = errors.New("email: empty subject")
	ErrNoBody       = errors.New("email: neither html nor text body")
)

// SendRequest is one outgoing report mail.
type SendRequest struct {
	To      []string
	Subject string
	HTML    string
	Text    string // plain-text alternative
	Tag     string // provider-side category
}

// Validate rejects mail no provider would accept.
func (r SendRequest) Validate() error {
	var errs []error
	if len(r.To) == 0 {
		errs = append(errs, ErrNoRecipients)
	}
	if strings.TrimSpace(r.Subject) == "" {
		errs = append(errs, ErrNoSubject)
	}
	if r.HTML == "" && r.Text == "" {
		errs = append(errs, ErrNoBody)
	}
	return errors.Join(errs...)
}

// SendResult identifies a delivered mail at the provider.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers report mail.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
