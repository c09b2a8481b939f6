// Package mail sends transactional email. All sends are fire-and-forget:
// the mail relay being down must never fail a password reset request.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"golang.org/x/time/rate"
)

// Mailer is the outbound email surface the services depend on.
type Mailer interface {
	SendPasswordReset(to, link string)
	SendRoleChange(to, role, action string)
}

// Config carries SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether a relay is set up. Without one, sends become
// no-ops and the reset link is only reachable via operator logs.
func (c Config) Configured() bool {
	return c.Host != "" && c.From != ""
}

// SMTPMailer delivers via a plain SMTP relay, throttled so a burst of
// reset requests cannot flood the relay.
type SMTPMailer struct {
	cfg     Config
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewSMTPMailer(cfg Config, log *slog.Logger) *SMTPMailer {
	// One message per second sustained, small burst headroom.
	return &SMTPMailer{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(1), 5),
		log:     log,
	}
}

// SendPasswordReset delivers the reset link asynchronously. Failures are
// logged and dropped.
func (m *SMTPMailer) SendPasswordReset(to, link string) {
	if !m.cfg.Configured() {
		m.log.Info("mail relay not configured, skipping send", "to", to)
		return
	}

	go func() {
		if err := m.limiter.Wait(context.Background()); err != nil {
			return
		}
		if err := m.send(to, "Password reset",
			"A password reset was requested for your account.\r\n\r\n"+
				"Reset link: "+link+"\r\n\r\n"+
				"If you did not request this, you can ignore this email."); err != nil {
			m.log.Warn("password reset email failed", "to", to, "err", err)
		}
	}()
}

// SendRoleChange notifies a user that a role was assigned to or removed
// from their account. Same delivery semantics as SendPasswordReset.
func (m *SMTPMailer) SendRoleChange(to, role, action string) {
	if !m.cfg.Configured() {
		return
	}

	go func() {
		if err := m.limiter.Wait(context.Background()); err != nil {
			return
		}
		if err := m.send(to, "Your access has changed",
			"The role \""+role+"\" was "+action+" your account.\r\n\r\n"+
				"If this is unexpected, contact your administrator."); err != nil {
			m.log.Warn("role change email failed", "to", to, "err", err)
		}
	}()
}

func (m *SMTPMailer) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg))
}

// NopMailer discards everything. Used in tests and when no relay exists.
type NopMailer struct{}

func (NopMailer) SendPasswordReset(string, string) {}

func (NopMailer) SendRoleChange(string, string, string) {}
