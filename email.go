package main

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"golang.org/x/exp/slog"
)

// Mailer sends account emails via SMTP.
type Mailer struct {
	cfg *Config
}

// NewMailer returns nil when no SMTP host is configured; callers treat a nil
// mailer as "email disabled".
func NewMailer(cfg *Config) *Mailer {
	if cfg.SMTPHost == "" {
		return nil
	}

	return &Mailer{cfg: cfg}
}

// SendWelcome greets a freshly registered user. Best effort: registration
// already succeeded, so failures are only logged.
func (m *Mailer) SendWelcome(to, fullName string) {
	e := email.NewEmail()
	e.From = m.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Welcome to Photo Album"
	e.Text = []byte(fmt.Sprintf(
		"Dear %s,\n\nYour account is ready. Log in to start uploading pictures.\n\nBest regards,\nPhoto Album",
		fullName,
	))

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		slog.Error("Sending welcome email", "to", to, "error", err)
		return
	}

	slog.Info("Welcome email sent", "to", to)
}
