package mail

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"interviewgo/internal/config"
)

// Sender delivers one transactional email. Implementations are stateless;
// the caller decides what goes in the message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridSender builds a sender from app config.
func NewSendGridSender(cfg config.MailConfig) (*SendGridSender, error) {
	if cfg.SendGridAPIKey == "" {
		return nil, errors.New("sendgrid api key required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("sender email required")
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}, nil
}

// Send submits the message and fails on any non-2xx provider response.
func (s *SendGridSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.fromName, s.fromEmail),
		subject,
		sgmail.NewEmail("", to),
		"",
		htmlBody,
	)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send email: provider status %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes the message to the process log instead of delivering it.
// Development fallback when no mail provider is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	log.Printf("mail fallback: to=%s subject=%q\n%s", to, subject, htmlBody)
	return nil
}
