package mailer

import (
	"fmt"
	"io"
	"time"

	"github.com/famvault/auth-service/config"
	"gopkg.in/gomail.v2"
)

// Mailer sends the notification mails the auth flows fire after commit.
// Callers treat every send as best-effort: failures are logged by the
// caller and never surfaced to the end user.
type Mailer interface {
	SendWelcomeEmail(to, name, role string) error
	SendAdminReviewEmail(applicantName, applicantEmail string, idImage []byte, idImageName string) error
	SendPasswordResetEmail(to, name, resetLink string, ttl time.Duration) error
}

// SMTPMailer delivers via a plain SMTP relay.
type SMTPMailer struct {
	dialer     *gomail.Dialer
	from       string
	adminEmail string
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:       cfg.From,
		adminEmail: cfg.AdminEmail,
	}
}

func (m *SMTPMailer) send(to, subject, body string, attach func(*gomail.Message)) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if attach != nil {
		attach(msg)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMailer) SendWelcomeEmail(to, name, role string) error {
	body, err := RenderTemplate("welcome", map[string]any{
		"Name": name,
		"Role": role,
	})
	if err != nil {
		return err
	}
	return m.send(to, "Welcome to FamVault", body, nil)
}

// SendAdminReviewEmail notifies the review desk about a fresh PARENT
// signup, attaching the raw identity-document bytes.
func (m *SMTPMailer) SendAdminReviewEmail(applicantName, applicantEmail string, idImage []byte, idImageName string) error {
	body, err := RenderTemplate("admin_review", map[string]any{
		"Name":  applicantName,
		"Email": applicantEmail,
	})
	if err != nil {
		return err
	}

	var attach func(*gomail.Message)
	if len(idImage) > 0 {
		attach = func(msg *gomail.Message) {
			msg.Attach(idImageName, gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(idImage)
				return err
			}))
		}
	}

	return m.send(m.adminEmail, "New parent account awaiting review", body, attach)
}

func (m *SMTPMailer) SendPasswordResetEmail(to, name, resetLink string, ttl time.Duration) error {
	body, err := RenderTemplate("password_reset", map[string]any{
		"Name":      name,
		"ResetLink": resetLink,
		"TTL":       ttl.String(),
	})
	if err != nil {
		return err
	}
	return m.send(to, "Reset your FamVault password", body, nil)
}
