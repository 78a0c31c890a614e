// Package mailer provides production implementations of the heartbeat's
// collaborators: an SMTP sender and a reply detector backed by the
// inbound_replies table an external mail ingest writes to.
package mailer

import (
	"context"
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"mubot/internal/models"
)

// SMTPConfig holds SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers follow-ups over SMTP
type SMTPSender struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPSender creates an SMTP sender
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send delivers the follow-up message for an entry. When no draft is
// attached to the follow-up, a plain reminder referencing the original
// subject is sent; drafting richer content is the job of the layer that
// attaches drafts.
func (s *SMTPSender) Send(ctx context.Context, entry *models.OutreachEntry, followupIndex int) error {
	subject := fmt.Sprintf("Re: %s", entry.Subject)
	body := fmt.Sprintf(
		"Hi,\r\n\r\nI wanted to follow up on my earlier note about the %s role at %s. "+
			"I remain very interested and would welcome the chance to talk.\r\n\r\n"+
			"If you'd rather not hear from me again, just reply 'unsubscribe'.\r\n",
		entry.Role, entry.Company,
	)

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", entry.RecipientEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	// gomail has no context support; honor cancellation before dialing.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send follow-up %d to %s: %w", followupIndex, entry.RecipientEmail, err)
	}

	log.Printf("📧 Follow-up %d delivered to %s", followupIndex, entry.RecipientEmail)
	return nil
}
