// Package notify holds the channel-specific delivery transports used by the
// notification dispatcher.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	Host            string
	Port            string
	Username        string
	Password        string
	From            string
	FromName        string
	RecipientDomain string
}

// EmailTransport delivers over plain SMTP.
type EmailTransport struct {
	config EmailConfig
	server string
	auth   smtp.Auth
}

func NewEmailTransport(config EmailConfig) *EmailTransport {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &EmailTransport{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if SMTP is configured
func (t *EmailTransport) IsConfigured() bool {
	return t.config.Host != "" && t.config.Port != "" && t.config.From != ""
}

func (t *EmailTransport) Send(ctx context.Context, recipient, subject, body string) error {
	if !t.IsConfigured() {
		return fmt.Errorf("email transport not configured")
	}

	to := t.addressFor(recipient)
	from := t.config.From
	if t.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", t.config.FromName, t.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		to, from, subject, body,
	))

	return smtp.SendMail(t.server, t.auth, t.config.From, []string{to}, msg)
}

// addressFor maps a user ID to a mailbox. IDs that already look like
// addresses pass through; the rest get the configured directory domain.
func (t *EmailTransport) addressFor(recipient string) string {
	if strings.Contains(recipient, "@") {
		return recipient
	}
	return recipient + "@" + t.config.RecipientDomain
}
