// Package notifier sends transactional email
package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/config"
)

// ErrNoRecipients is returned when a message has nobody to go to
var ErrNoRecipients = errors.New("no recipients")

// Message is an outgoing email
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	ToName  string
}

// Notifier delivers messages
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the SendGrid notifier when an API key is configured and the
// logging notifier otherwise
func New(conf config.MailConfig) Notifier {
	if conf.SendGridAPIKey == "" {
		zap.S().Warn("SENDGRID_API_KEY not set, emails will only be logged")
		return Log{}
	}
	return NewSendGrid(conf)
}

// SendGrid is the Notifier backed by the SendGrid v3 API
type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGrid creates a SendGrid notifier from the mail config
func NewSendGrid(conf config.MailConfig) *SendGrid {
	return &SendGrid{
		client: sendgrid.NewSendClient(conf.SendGridAPIKey),
		from:   mail.NewEmail(conf.FromName, conf.FromAddress),
	}
}

// Send implements Notifier. Every recipient gets its own personalization so
// addresses are not disclosed to each other.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject
	for _, addr := range msg.To {
		p := mail.NewPersonalization()
		p.AddTos(mail.NewEmail(msg.ToName, addr))
		m.AddPersonalizations(p)
	}
	if msg.Text != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}

	response, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}

// Log is a Notifier that only logs what it would send. It stands in for
// SendGrid when no API key is configured.
type Log struct{}

// Send implements Notifier
func (Log) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	zap.S().Infow("email not sent, no mail provider configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
